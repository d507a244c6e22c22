package db

import (
	"database/sql"
)

// SchemaSQL is the complete modern schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Repository tests
// load it through GetSchemaSQL() instead of declaring their own tables, so a
// column referenced by a repository but missing here fails immediately with
// "no such column".
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//  3. Bump the version loop in InitSchema
const SchemaSQL = `
-- Status-log outbox (append-only; sync_state moves once from PENDING)
CREATE TABLE IF NOT EXISTS status_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id TEXT NOT NULL,
	network_id TEXT NOT NULL DEFAULT '',
	latitude TEXT NOT NULL DEFAULT '',
	longitude TEXT NOT NULL DEFAULT '',
	observed_at TEXT NOT NULL,
	subject_phone TEXT NOT NULL DEFAULT '',
	sync_state TEXT NOT NULL CHECK(sync_state IN ('PENDING', 'SENT', 'FAILED')) DEFAULT 'PENDING',
	trigger_source TEXT NOT NULL DEFAULT 'manual',
	last_error TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_status_logs_created ON status_logs(created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_status_logs_sync_state ON status_logs(sync_state);

-- Flat key-value settings (toggle, session cache)
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Periodic work registrations, unique by name
CREATE TABLE IF NOT EXISTS work_schedules (
	name TEXT PRIMARY KEY,
	interval_seconds INTEGER NOT NULL CHECK(interval_seconds > 0),
	next_run_at DATETIME NOT NULL,
	last_run_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// schemaVersion is the version SchemaSQL corresponds to.
const schemaVersion = 2

// InitSchema creates the schema on a fresh database or migrates an existing one.
func InitSchema(db *sql.DB) error {
	// Check if schema_version table exists to determine if this is a fresh install
	var tableCount int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount > 0 {
		// schema_version table exists - run any pending migrations
		return RunMigrations(db)
	}

	// Completely fresh install - create modern schema directly
	// Also create schema_version at max version to prevent migrations from running
	if _, err := db.Exec(SchemaSQL); err != nil {
		return err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}
	for i := 1; i <= schemaVersion; i++ {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", i); err != nil {
			return err
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
