package storage

import (
	"testing"
	"time"
)

func TestBuildRunReportPath(t *testing.T) {
	path, err := BuildObjectPath(PurposeRunReport, PathParams{
		RunID:     "01HZX3",
		StartedAt: time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("MSK", 3*3600)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "reports/2024/03/05/01HZX3.json"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildInventorySnapshotPath(t *testing.T) {
	path, err := BuildObjectPath(PurposeInventorySnapshot, PathParams{
		RunID:     "run1",
		StartedAt: time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC),
		FileName:  "ostatki.zip",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "inventory/2024/03/05/run1/ostatki.zip"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildObjectPathRejectsInvalidSegment(t *testing.T) {
	_, err := BuildObjectPath(PurposeRunReport, PathParams{RunID: "../bad", StartedAt: time.Now()})
	if err == nil {
		t.Fatalf("expected error for invalid segment")
	}
}

func TestBuildObjectPathRejectsUnknownPurpose(t *testing.T) {
	if _, err := BuildObjectPath("thumbnail", PathParams{RunID: "r"}); err == nil {
		t.Fatalf("expected error for unknown purpose")
	}
}
