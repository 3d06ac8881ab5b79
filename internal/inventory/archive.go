package inventory

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

const maxMemberSize = 128 << 20

// extractMember returns the contents of the archive entry whose base name matches member.
func extractMember(archive []byte, member string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %v", ErrFormat, err)
	}
	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !strings.EqualFold(path.Base(file.Name), member) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrFormat, file.Name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxMemberSize+1))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrFormat, file.Name, err)
		}
		if len(data) > maxMemberSize {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFormat, file.Name, maxMemberSize)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: archive has no member %q", ErrFormat, member)
}
