package sqlite

import (
	"context"
	"database/sql"
	"strconv"

	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/secondary"
)

// SettingsRepository implements secondary.SettingsStore with SQLite.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SQLite settings store.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetString returns the value for key, or "" when unset.
func (r *SettingsRepository) GetString(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// SetString writes value for key, replacing any previous value.
func (r *SettingsRepository) SetString(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return errors.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// GetBool returns the boolean value for key, or false when unset.
func (r *SettingsRepository) GetBool(ctx context.Context, key string) (bool, error) {
	value, err := r.GetString(ctx, key)
	if err != nil || value == "" {
		return false, err
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.Errorf("setting %s is not a boolean: %w", key, err)
	}
	return b, nil
}

// SetBool writes a boolean value for key.
func (r *SettingsRepository) SetBool(ctx context.Context, key string, value bool) error {
	return r.SetString(ctx, key, strconv.FormatBool(value))
}

// Ensure SettingsRepository implements the interface
var _ secondary.SettingsStore = (*SettingsRepository)(nil)
