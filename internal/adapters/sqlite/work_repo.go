package sqlite

import (
	"context"
	"database/sql"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/secondary"
)

// WorkRepository implements secondary.WorkRepository with SQLite.
type WorkRepository struct {
	db *sql.DB
}

// NewWorkRepository creates a new SQLite work registration repository.
func NewWorkRepository(db *sql.DB) *WorkRepository {
	return &WorkRepository{db: db}
}

// Register inserts reg unless a registration with the same name exists.
func (r *WorkRepository) Register(ctx context.Context, reg *secondary.WorkRegistration) (bool, error) {
	seconds := int64(reg.Interval / time.Second)
	if seconds <= 0 {
		return false, errors.Errorf("invalid interval %s for %s", reg.Interval, reg.Name)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO work_schedules (name, interval_seconds, next_run_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		reg.Name, seconds, formatTime(reg.NextRunAt),
	)
	if err != nil {
		return false, errors.Errorf("failed to register %s: %w", reg.Name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Errorf("failed to register %s: %w", reg.Name, err)
	}
	return n > 0, nil
}

// Cancel removes the registration with the given name.
func (r *WorkRepository) Cancel(ctx context.Context, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM work_schedules WHERE name = ?`, name)
	if err != nil {
		return false, errors.Errorf("failed to cancel %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Errorf("failed to cancel %s: %w", name, err)
	}
	return n > 0, nil
}

// Get retrieves a registration by name, or nil if absent.
func (r *WorkRepository) Get(ctx context.Context, name string) (*secondary.WorkRegistration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT name, interval_seconds, next_run_at, last_run_at, created_at FROM work_schedules WHERE name = ?`, name)
	reg, err := scanWorkRegistration(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Errorf("failed to get work registration: %w", err)
	}
	return reg, nil
}

// ListDue retrieves registrations whose next run is at or before now.
func (r *WorkRepository) ListDue(ctx context.Context, now time.Time) ([]*secondary.WorkRegistration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, interval_seconds, next_run_at, last_run_at, created_at FROM work_schedules WHERE next_run_at <= ? ORDER BY next_run_at`,
		formatTime(now))
	if err != nil {
		return nil, errors.Errorf("failed to list due work: %w", err)
	}
	defer rows.Close()

	var regs []*secondary.WorkRegistration
	for rows.Next() {
		reg, err := scanWorkRegistration(rows)
		if err != nil {
			return nil, errors.Errorf("failed to scan work registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// MarkRun records a run start and the next due time.
func (r *WorkRepository) MarkRun(ctx context.Context, name string, startedAt, nextRunAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE work_schedules SET last_run_at = ?, next_run_at = ? WHERE name = ?`,
		formatTime(startedAt), formatTime(nextRunAt), name)
	if err != nil {
		return errors.Errorf("failed to mark run of %s: %w", name, err)
	}
	return nil
}

func scanWorkRegistration(row rowScanner) (*secondary.WorkRegistration, error) {
	var (
		seconds   int64
		nextRunAt time.Time
		lastRunAt sql.NullTime
		createdAt time.Time
	)

	reg := &secondary.WorkRegistration{}
	if err := row.Scan(&reg.Name, &seconds, &nextRunAt, &lastRunAt, &createdAt); err != nil {
		return nil, err
	}

	reg.Interval = time.Duration(seconds) * time.Second
	reg.NextRunAt = nextRunAt
	if lastRunAt.Valid {
		t := lastRunAt.Time
		reg.LastRunAt = &t
	}
	reg.CreatedAt = createdAt
	return reg, nil
}

// Ensure WorkRepository implements the interface
var _ secondary.WorkRepository = (*WorkRepository)(nil)
