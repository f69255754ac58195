package core

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one pipeline execution tracked in the state store.
type Run struct {
	ID          string
	Environment string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time

	// AuditPath is where the run's audit log was written, if any.
	AuditPath string

	Error string
}

// Store defines the interface for run-history state management.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Run operations
	CreateRun(env string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, auditPath, errMsg string) error
	GetLatestRun(env string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Lineage operations
	SaveLineage(runID string, records []LineageRecord) error
	GetLineage(runID string) ([]LineageRecord, error)

	// Quality summary operations
	SaveQualitySummary(runID string, counts []DatasetCounts) error
	GetQualitySummary(runID string) ([]DatasetCounts, error)
}
