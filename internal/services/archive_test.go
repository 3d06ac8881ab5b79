package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/VASILIYKAS/seller-apis/internal/platform/runctx"
)

type memoryObjects struct {
	writes map[string][]byte
	types  map[string]string
	copies [][4]string
}

func (m *memoryObjects) Write(_ context.Context, bucket, object, contentType string, data []byte) error {
	if m.writes == nil {
		m.writes = map[string][]byte{}
		m.types = map[string]string{}
	}
	m.writes[bucket+"/"+object] = data
	m.types[bucket+"/"+object] = contentType
	return nil
}

func (m *memoryObjects) CopyObject(_ context.Context, srcBucket, srcObject, dstBucket, dstObject string) error {
	m.copies = append(m.copies, [4]string{srcBucket, srcObject, dstBucket, dstObject})
	return nil
}

func TestBucketArchiverWritesRunReport(t *testing.T) {
	objects := &memoryObjects{}
	archiver, err := NewBucketArchiver(BucketArchiverDeps{Bucket: "reports", Objects: objects})
	if err != nil {
		t.Fatalf("new archiver: %v", err)
	}

	report := RunReport{RunID: "run-1", StartedAt: syncNow, Segments: []SegmentResult{{Segment: "ozon", StocksSent: 2}}}
	location, err := archiver.ArchiveRunReport(context.Background(), report)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if location != "gs://reports/reports/2024/03/05/run-1.json" {
		t.Fatalf("unexpected location %s", location)
	}

	data := objects.writes["reports/reports/2024/03/05/run-1.json"]
	var decoded RunReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode archived report: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.Segments[0].StocksSent != 2 {
		t.Fatalf("unexpected archived report %+v", decoded)
	}
}

func TestBucketArchiverSnapshotUploadsHTTPPayload(t *testing.T) {
	objects := &memoryObjects{}
	archiver, err := NewBucketArchiver(BucketArchiverDeps{
		Bucket:  "reports",
		Objects: objects,
		Copier:  objects,
		Clock:   func() time.Time { return syncNow },
	})
	if err != nil {
		t.Fatalf("new archiver: %v", err)
	}

	ctx := runctx.WithRunID(context.Background(), "run-9")
	if err := archiver.ArchiveSnapshot(ctx, "https://timeworld.ru/upload/files/ostatki.zip", []byte("zip")); err != nil {
		t.Fatalf("archive snapshot: %v", err)
	}
	if string(objects.writes["reports/inventory/2024/03/05/run-9/ostatki.zip"]) != "zip" {
		t.Fatalf("unexpected writes %v", objects.writes)
	}
	if len(objects.copies) != 0 {
		t.Fatalf("http sources must not be copied server-side")
	}
}

func TestBucketArchiverSnapshotCopiesGCSSource(t *testing.T) {
	objects := &memoryObjects{}
	archiver, _ := NewBucketArchiver(BucketArchiverDeps{
		Bucket:  "reports",
		Objects: objects,
		Copier:  objects,
		Clock:   func() time.Time { return syncNow },
	})

	ctx := runctx.WithRunID(context.Background(), "run-9")
	if err := archiver.ArchiveSnapshot(ctx, "gs://feeds/daily/ostatki.zip", nil); err != nil {
		t.Fatalf("archive snapshot: %v", err)
	}
	want := [4]string{"feeds", "daily/ostatki.zip", "reports", "inventory/2024/03/05/run-9/ostatki.zip"}
	if len(objects.copies) != 1 || objects.copies[0] != want {
		t.Fatalf("unexpected copies %v", objects.copies)
	}
	if len(objects.writes) != 0 {
		t.Fatalf("gs sources must not be re-uploaded")
	}
}

func TestNewBucketArchiverValidatesDeps(t *testing.T) {
	if _, err := NewBucketArchiver(BucketArchiverDeps{Objects: &memoryObjects{}}); err == nil {
		t.Fatalf("expected bucket error")
	}
	if _, err := NewBucketArchiver(BucketArchiverDeps{Bucket: "b"}); err == nil {
		t.Fatalf("expected writer error")
	}
}
