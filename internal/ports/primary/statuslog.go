package primary

import (
	"context"
	"time"
)

// StatusLogService defines the primary port for the status-log task.
type StatusLogService interface {
	// RunAttempt runs one status-log invocation. Failures inside the attempt
	// are reported in the result, never returned.
	RunAttempt(ctx context.Context) *AttemptResult

	// HandleChainTick runs one attempt of the self-chaining loop and arms
	// its successor unless the toggle stopped it.
	HandleChainTick(ctx context.Context)

	// HandlePeriodicTick runs one attempt of the periodic trigger.
	HandlePeriodicTick(ctx context.Context)

	// ListStatusLogs lists records newest first.
	ListStatusLogs(ctx context.Context, filters StatusLogFilters) ([]*StatusLog, error)

	// ObserveStatusLogs emits the ordered record list whenever it changes,
	// until ctx is done.
	ObserveStatusLogs(ctx context.Context, filters StatusLogFilters, interval time.Duration) <-chan []*StatusLog

	// Summary returns outbox counts by sync-state.
	Summary(ctx context.Context) (*OutboxSummary, error)

	// Prune deletes terminal records older than the cutoff.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// AttemptResult is the outcome of one status-log invocation.
type AttemptResult struct {
	RecordID      int64
	Trigger       string
	Phase         string // final phase reached
	SyncState     string // "" when no record was written
	LocationError string
	Err           error // persistence failure, if any
}

// Stopped reports whether the invocation found the toggle disabled.
func (r *AttemptResult) Stopped() bool {
	return r != nil && r.Phase == "STOPPED"
}

// StatusLog represents a status-log record at the port boundary.
type StatusLog struct {
	ID           int64     `json:"id"`
	DeviceID     string    `json:"device_id"`
	NetworkID    string    `json:"network_id"`
	Latitude     string    `json:"latitude"`
	Longitude    string    `json:"longitude"`
	Timestamp    string    `json:"timestamp"`
	SubjectPhone string    `json:"subject_phone"`
	SyncState    string    `json:"sync_state"`
	Trigger      string    `json:"trigger"`
	LastError    string    `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StatusLogFilters contains filter options for listing status logs.
type StatusLogFilters struct {
	SyncState string
	Limit     int
}

// OutboxSummary counts outbox records by sync-state.
type OutboxSummary struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}
