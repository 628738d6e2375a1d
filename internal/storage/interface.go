package storage

import (
	"context"
	"time"
)

// SnapshotStore records versions of the dataset files
type SnapshotStore interface {
	Commit(ctx context.Context, stage, summary, runID string, paths ...string) (string, error)
	History(ctx context.Context, limit int) ([]Snapshot, error)
	Health(ctx context.Context) error
}

// Snapshot describes one recorded version of the dataset
type Snapshot struct {
	Hash    string    `json:"hash"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	RunID   string    `json:"run_id,omitempty"`
	When    time.Time `json:"when"`
}

// StorageMetrics provides telemetry for snapshot operations
type StorageMetrics struct {
	OperationType string
	Duration      int64 // nanoseconds
	Success       bool
	Backend       string
	Error         error
}

// MetricsCollector receives storage operation metrics
type MetricsCollector interface {
	RecordMetric(metric StorageMetrics)
}
