package secondary

import (
	"context"
	"time"
)

// OutboxRepository defines the secondary port for the durable status-log outbox.
// Records are append-only; sync-state moves once from PENDING to SENT or FAILED.
type OutboxRepository interface {
	// Insert persists a new PENDING record and returns its store-assigned ID.
	Insert(ctx context.Context, record *StatusLogRecord) (int64, error)

	// MarkSent moves a PENDING record to SENT. No-op for missing or terminal records.
	MarkSent(ctx context.Context, id int64) error

	// MarkFailed moves a PENDING record to FAILED. No-op for missing or terminal records.
	MarkFailed(ctx context.Context, id int64, reason string) error

	// GetByID retrieves a record by its ID.
	GetByID(ctx context.Context, id int64) (*StatusLogRecord, error)

	// List retrieves records newest creation-time first.
	List(ctx context.Context, filters OutboxFilters) ([]*StatusLogRecord, error)

	// CountByState returns the number of records per sync-state.
	CountByState(ctx context.Context) (map[string]int, error)

	// PruneBefore deletes terminal records created before cutoff.
	// Never called by the status-log pipeline itself.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatusLogRecord represents one status-log attempt as stored in persistence.
type StatusLogRecord struct {
	ID           int64
	DeviceID     string
	NetworkID    string // empty means unknown/unavailable
	Latitude     string
	Longitude    string
	Timestamp    string // ISO-8601 UTC instant of the observation
	SubjectPhone string
	SyncState    string
	Trigger      string
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OutboxFilters contains filter options for listing records.
type OutboxFilters struct {
	SyncState string
	AfterID   int64 // only records with a greater ID
	Limit     int
}
