package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
)

const maxObjectSize = 64 << 20

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
	errNotGCSURL     = errors.New("storage: url must use the gs:// scheme")
)

// ParseURL splits a gs://bucket/object reference.
func ParseURL(raw string) (bucket, object string, err error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("storage: parse url: %w", err)
	}
	if parsed.Scheme != "gs" {
		return "", "", errNotGCSURL
	}
	bucket = strings.TrimSpace(parsed.Host)
	if bucket == "" {
		return "", "", errInvalidBucket
	}
	object = strings.TrimPrefix(parsed.Path, "/")
	if object == "" {
		return "", "", errInvalidObject
	}
	return bucket, object, nil
}

// IsGCSURL reports whether raw uses the gs:// scheme.
func IsGCSURL(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "gs://")
}

// Objects reads and writes whole Cloud Storage objects.
type Objects struct {
	client *gcs.Client
}

// NewObjects constructs Objects backed by the provided Cloud Storage client.
func NewObjects(client *gcs.Client) (*Objects, error) {
	if client == nil {
		return nil, errors.New("storage objects: client is required")
	}
	return &Objects{client: client}, nil
}

// Read downloads the object into memory. Objects larger than 64 MiB are rejected.
func (o *Objects) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if err := validateLocation(bucket, object); err != nil {
		return nil, err
	}
	reader, err := o.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: open gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read gs://%s/%s: %w", bucket, object, err)
	}
	if len(data) > maxObjectSize {
		return nil, fmt.Errorf("storage: gs://%s/%s exceeds %d bytes", bucket, object, maxObjectSize)
	}
	return data, nil
}

// Write uploads data as the full object contents.
func (o *Objects) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	if err := validateLocation(bucket, object); err != nil {
		return err
	}
	writer := o.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("storage: write gs://%s/%s: %w", bucket, object, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("storage: finalize gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

func validateLocation(bucket, object string) error {
	if strings.TrimSpace(bucket) == "" {
		return errInvalidBucket
	}
	if strings.TrimSpace(object) == "" {
		return errInvalidObject
	}
	return nil
}
