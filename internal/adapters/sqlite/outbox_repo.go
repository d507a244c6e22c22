package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/core/statuslog"
	"github.com/example/attend/internal/ports/secondary"
)

// OutboxRepository implements secondary.OutboxRepository with SQLite.
type OutboxRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewOutboxRepository creates a new SQLite outbox repository.
func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db, now: time.Now}
}

const statusLogColumns = `id, device_id, network_id, latitude, longitude, observed_at, subject_phone, sync_state, trigger_source, last_error, created_at, updated_at`

// Insert persists a new PENDING record and returns the assigned ID.
// The sync state on the record is ignored: new rows are always PENDING.
func (r *OutboxRepository) Insert(ctx context.Context, record *secondary.StatusLogRecord) (int64, error) {
	now := r.now()
	trigger := record.Trigger
	if trigger == "" {
		trigger = "manual"
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO status_logs (device_id, network_id, latitude, longitude, observed_at, subject_phone, sync_state, trigger_source, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.DeviceID,
		record.NetworkID,
		record.Latitude,
		record.Longitude,
		record.Timestamp,
		record.SubjectPhone,
		string(statuslog.SyncPending),
		trigger,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return 0, errors.Errorf("failed to insert status log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Errorf("failed to read status log id: %w", err)
	}

	return id, nil
}

// MarkSent moves a PENDING record to SENT.
func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	return r.transition(ctx, id, statuslog.SyncSent, "")
}

// MarkFailed moves a PENDING record to FAILED, keeping the failure reason.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.transition(ctx, id, statuslog.SyncFailed, reason)
}

// transition applies a guarded sync-state change. A disallowed transition
// (missing record, already terminal) is a no-op.
func (r *OutboxRepository) transition(ctx context.Context, id int64, target statuslog.SyncState, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Errorf("failed to begin transition: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT sync_state FROM status_logs WHERE id = ?`, id).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return errors.Errorf("failed to read status log %d: %w", id, err)
	}

	guard := statuslog.CanTransition(statuslog.TransitionContext{
		RecordID:     id,
		Exists:       err == nil,
		CurrentState: statuslog.SyncState(current),
		TargetState:  target,
	})
	if !guard.Allowed {
		zerolog.Ctx(ctx).Debug().Int64("id", id).Str("target", string(target)).Str("reason", guard.Reason).Msg("sync-state transition skipped")
		return nil
	}

	var lastError sql.NullString
	if reason != "" {
		lastError = sql.NullString{String: reason, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE status_logs SET sync_state = ?, last_error = ?, updated_at = ? WHERE id = ? AND sync_state = ?`,
		string(target), lastError, formatTime(r.now()), id, string(statuslog.SyncPending),
	)
	if err != nil {
		return errors.Errorf("failed to mark status log %d %s: %w", id, target, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Errorf("failed to commit transition: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID.
func (r *OutboxRepository) GetByID(ctx context.Context, id int64) (*secondary.StatusLogRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+statusLogColumns+` FROM status_logs WHERE id = ?`, id)
	record, err := scanStatusLog(row)
	if err == sql.ErrNoRows {
		return nil, errors.Errorf("status log %d not found", id)
	}
	if err != nil {
		return nil, errors.Errorf("failed to get status log: %w", err)
	}
	return record, nil
}

// List retrieves records newest creation-time first.
func (r *OutboxRepository) List(ctx context.Context, filters secondary.OutboxFilters) ([]*secondary.StatusLogRecord, error) {
	query := `SELECT ` + statusLogColumns + ` FROM status_logs WHERE 1=1`
	args := []any{}

	if filters.SyncState != "" {
		query += " AND sync_state = ?"
		args = append(args, filters.SyncState)
	}

	if filters.AfterID > 0 {
		query += " AND id > ?"
		args = append(args, filters.AfterID)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Errorf("failed to list status logs: %w", err)
	}
	defer rows.Close()

	var records []*secondary.StatusLogRecord
	for rows.Next() {
		record, err := scanStatusLog(rows)
		if err != nil {
			return nil, errors.Errorf("failed to scan status log: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// CountByState returns the number of records per sync-state.
func (r *OutboxRepository) CountByState(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sync_state, COUNT(*) FROM status_logs GROUP BY sync_state`)
	if err != nil {
		return nil, errors.Errorf("failed to count status logs: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, errors.Errorf("failed to scan status log count: %w", err)
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

// PruneBefore deletes SENT and FAILED records created before cutoff.
// PENDING rows are kept: they are the evidence of interrupted attempts.
func (r *OutboxRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM status_logs WHERE sync_state IN (?, ?) AND created_at < ?`,
		string(statuslog.SyncSent), string(statuslog.SyncFailed), formatTime(cutoff),
	)
	if err != nil {
		return 0, errors.Errorf("failed to prune status logs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatusLog(row rowScanner) (*secondary.StatusLogRecord, error) {
	var (
		lastError sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	record := &secondary.StatusLogRecord{}
	err := row.Scan(&record.ID,
		&record.DeviceID,
		&record.NetworkID,
		&record.Latitude,
		&record.Longitude,
		&record.Timestamp,
		&record.SubjectPhone,
		&record.SyncState,
		&record.Trigger,
		&lastError,
		&createdAt,
		&updatedAt)
	if err != nil {
		return nil, err
	}

	record.LastError = lastError.String
	record.CreatedAt = createdAt
	record.UpdatedAt = updatedAt
	return record, nil
}

// Ensure OutboxRepository implements the interface
var _ secondary.OutboxRepository = (*OutboxRepository)(nil)
