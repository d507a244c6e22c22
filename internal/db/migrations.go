package db

import (
	"database/sql"

	"github.com/rs/zerolog/log"
	"gitlab.com/tozd/go/errors"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_status_logs_settings_work_schedules",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_trigger_source_and_last_error_to_status_logs",
		Up:      migrationV2,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return errors.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		log.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("running migration")

		tx, err := db.Begin()
		if err != nil {
			return errors.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return errors.Errorf("migration %d failed: %w", migration.Version, err)
		}

		_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			tx.Rollback()
			return errors.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return errors.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates the original tables.
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS status_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			network_id TEXT NOT NULL DEFAULT '',
			latitude TEXT NOT NULL DEFAULT '',
			longitude TEXT NOT NULL DEFAULT '',
			observed_at TEXT NOT NULL,
			subject_phone TEXT NOT NULL DEFAULT '',
			sync_state TEXT NOT NULL CHECK(sync_state IN ('PENDING', 'SENT', 'FAILED')) DEFAULT 'PENDING',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_status_logs_created ON status_logs(created_at DESC, id DESC);
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS work_schedules (
			name TEXT PRIMARY KEY,
			interval_seconds INTEGER NOT NULL CHECK(interval_seconds > 0),
			next_run_at DATETIME NOT NULL,
			last_run_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// migrationV2 records which trigger produced a row and why delivery failed.
func migrationV2(tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE status_logs ADD COLUMN trigger_source TEXT NOT NULL DEFAULT 'manual'`,
		`ALTER TABLE status_logs ADD COLUMN last_error TEXT`,
		`CREATE INDEX IF NOT EXISTS idx_status_logs_sync_state ON status_logs(sync_state)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
