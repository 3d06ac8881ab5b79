package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MetadataSource is the custom metadata key recording where an archived copy came from.
const MetadataSource = "marketsync-source"

// Copier archives existing objects with server-side copies.
type Copier struct {
	client *gcs.Client
}

// NewCopier constructs a Copier backed by the provided Cloud Storage client.
func NewCopier(client *gcs.Client) (*Copier, error) {
	if client == nil {
		return nil, errors.New("storage copier: client is required")
	}
	return &Copier{client: client}, nil
}

// CopyObject copies sourceBucket/sourceObject to destBucket/destObject and tags the copy with
// its origin. An existing destination is left untouched, so repeating a run is a no-op.
func (c *Copier) CopyObject(ctx context.Context, sourceBucket, sourceObject, destBucket, destObject string) error {
	if c == nil || c.client == nil {
		return errors.New("storage copier: client is not initialised")
	}
	src, dst, err := copyTargets(sourceBucket, sourceObject, destBucket, destObject)
	if err != nil {
		return err
	}
	if src == dst {
		return nil
	}

	from := c.client.Bucket(src.bucket).Object(src.object)
	to := c.client.Bucket(dst.bucket).Object(dst.object).If(gcs.Conditions{DoesNotExist: true})
	copier := to.CopierFrom(from)
	copier.Metadata = map[string]string{MetadataSource: src.String()}

	if _, err := copier.Run(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("storage copier: source %s: %w", src, err)
		}
		if isPreconditionFailed(err) {
			return nil
		}
		return fmt.Errorf("storage copier: copy %s to %s: %w", src, dst, err)
	}
	return nil
}

type objectRef struct {
	bucket string
	object string
}

func (r objectRef) String() string {
	return "gs://" + r.bucket + "/" + r.object
}

func copyTargets(sourceBucket, sourceObject, destBucket, destObject string) (objectRef, objectRef, error) {
	src := objectRef{bucket: strings.TrimSpace(sourceBucket), object: strings.TrimSpace(sourceObject)}
	dst := objectRef{bucket: strings.TrimSpace(destBucket), object: strings.TrimSpace(destObject)}
	if src.bucket == "" || dst.bucket == "" {
		return objectRef{}, objectRef{}, errInvalidBucket
	}
	if src.object == "" || dst.object == "" {
		return objectRef{}, objectRef{}, errInvalidObject
	}
	return src, dst, nil
}

// isPreconditionFailed reports a DoesNotExist condition rejected over JSON or gRPC.
func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusPreconditionFailed
	}
	return status.Code(err) == codes.FailedPrecondition
}
