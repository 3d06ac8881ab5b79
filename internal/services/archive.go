package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/VASILIYKAS/seller-apis/internal/platform/runctx"
	"github.com/VASILIYKAS/seller-apis/internal/platform/storage"
)

// ObjectWriter writes whole objects to a bucket.
type ObjectWriter interface {
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// ObjectCopier performs server-side copies between buckets.
type ObjectCopier interface {
	CopyObject(ctx context.Context, sourceBucket, sourceObject, destBucket, destObject string) error
}

// BucketArchiverDeps bundles the collaborators required to construct a bucket archiver.
type BucketArchiverDeps struct {
	Bucket  string
	Objects ObjectWriter
	Copier  ObjectCopier
	Clock   func() time.Time
}

// BucketArchiver stores run reports and inventory snapshots in a Cloud Storage bucket.
type BucketArchiver struct {
	bucket  string
	objects ObjectWriter
	copier  ObjectCopier
	clock   func() time.Time
}

// NewBucketArchiver validates deps and returns an archiver.
func NewBucketArchiver(deps BucketArchiverDeps) (*BucketArchiver, error) {
	bucket := strings.TrimSpace(deps.Bucket)
	if bucket == "" {
		return nil, errors.New("bucket archiver: bucket is required")
	}
	if deps.Objects == nil {
		return nil, errors.New("bucket archiver: object writer is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &BucketArchiver{bucket: bucket, objects: deps.Objects, copier: deps.Copier, clock: clock}, nil
}

// ArchiveRunReport writes the report as JSON and returns its gs:// location.
func (a *BucketArchiver) ArchiveRunReport(ctx context.Context, report RunReport) (string, error) {
	object, err := storage.BuildObjectPath(storage.PurposeRunReport, storage.PathParams{
		RunID:     report.RunID,
		StartedAt: report.StartedAt,
	})
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run report: %w", err)
	}
	if err := a.objects.Write(ctx, a.bucket, object, "application/json", data); err != nil {
		return "", err
	}
	return "gs://" + a.bucket + "/" + object, nil
}

// ArchiveSnapshot stores the raw inventory payload under the current run.
// gs:// sources are copied server-side when a copier is configured.
func (a *BucketArchiver) ArchiveSnapshot(ctx context.Context, source string, data []byte) error {
	runID := runctx.RunID(ctx)
	if runID == "" {
		runID = "adhoc"
	}

	name := path.Base(source)
	if storage.IsGCSURL(source) {
		if _, object, err := storage.ParseURL(source); err == nil {
			name = path.Base(object)
		}
	}
	object, err := storage.BuildObjectPath(storage.PurposeInventorySnapshot, storage.PathParams{
		RunID:     runID,
		StartedAt: a.clock(),
		FileName:  name,
	})
	if err != nil {
		return err
	}

	if a.copier != nil && storage.IsGCSURL(source) {
		srcBucket, srcObject, err := storage.ParseURL(source)
		if err != nil {
			return err
		}
		return a.copier.CopyObject(ctx, srcBucket, srcObject, a.bucket, object)
	}
	return a.objects.Write(ctx, a.bucket, object, "application/octet-stream", data)
}
