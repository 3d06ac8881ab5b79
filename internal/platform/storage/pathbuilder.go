package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ArtifactPurpose identifies the kind of run artifact being stored.
type ArtifactPurpose string

const (
	PurposeRunReport         ArtifactPurpose = "run-report"
	PurposeInventorySnapshot ArtifactPurpose = "inventory-snapshot"
)

// PathParams provide the identifiers used to compose object keys.
type PathParams struct {
	RunID     string
	StartedAt time.Time
	FileName  string
}

// PathBuilder composes the object path for a given artifact purpose.
type PathBuilder func(PathParams) (string, error)

var (
	pathBuilders = map[ArtifactPurpose]PathBuilder{
		PurposeRunReport:         buildRunReportPath,
		PurposeInventorySnapshot: buildInventorySnapshotPath,
	}
	pathBuildersMu sync.RWMutex
)

// RegisterPathBuilder overrides or registers a builder for a specific purpose.
func RegisterPathBuilder(purpose ArtifactPurpose, builder PathBuilder) {
	pathBuildersMu.Lock()
	defer pathBuildersMu.Unlock()
	if builder == nil {
		delete(pathBuilders, purpose)
		return
	}
	pathBuilders[purpose] = builder
}

// BuildObjectPath resolves the storage object path for the given purpose.
func BuildObjectPath(purpose ArtifactPurpose, params PathParams) (string, error) {
	pathBuildersMu.RLock()
	builder, ok := pathBuilders[purpose]
	pathBuildersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("storage: unsupported artifact purpose %q", purpose)
	}
	return builder(params)
}

func buildRunReportPath(params PathParams) (string, error) {
	runID, err := validateSegment("runID", params.RunID)
	if err != nil {
		return "", err
	}
	if params.StartedAt.IsZero() {
		return "", fmt.Errorf("storage: startedAt is required")
	}
	return fmt.Sprintf("reports/%s/%s.json", params.StartedAt.UTC().Format("2006/01/02"), runID), nil
}

func buildInventorySnapshotPath(params PathParams) (string, error) {
	runID, err := validateSegment("runID", params.RunID)
	if err != nil {
		return "", err
	}
	if params.StartedAt.IsZero() {
		return "", fmt.Errorf("storage: startedAt is required")
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("inventory/%s/%s/%s", params.StartedAt.UTC().Format("2006/01/02"), runID, fileName), nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
