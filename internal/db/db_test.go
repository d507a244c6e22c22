package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func columnNames(t *testing.T, database *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := database.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("table_info failed: %v", err)
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var (
			cid       int
			name      string
			typ       string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &pk); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		cols[name] = true
	}
	return cols
}

func TestOpen_FreshInstall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "attend.db")

	database, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer database.Close()

	var version int
	if err := database.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != schemaVersion {
		t.Errorf("schema version = %d, want %d", version, schemaVersion)
	}

	cols := columnNames(t, database, "status_logs")
	for _, c := range []string{"id", "device_id", "network_id", "sync_state", "trigger_source", "last_error", "created_at"} {
		if !cols[c] {
			t.Errorf("status_logs missing column %s", c)
		}
	}
}

func TestOpen_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attend.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if _, err := first.Exec("INSERT INTO settings (key, value) VALUES ('tracking_enabled', 'true')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer second.Close()

	var value string
	if err := second.QueryRow("SELECT value FROM settings WHERE key = 'tracking_enabled'").Scan(&value); err != nil {
		t.Fatalf("setting did not survive reopen: %v", err)
	}
	if value != "true" {
		t.Errorf("value = %q, want true", value)
	}
}

func TestRunMigrations_FromV1(t *testing.T) {
	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	database.SetMaxOpenConns(1)
	defer database.Close()

	tx, err := database.Begin()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := migrationV1(tx); err != nil {
		t.Fatalf("migrationV1 failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if _, err := database.Exec(`CREATE TABLE schema_version (version INTEGER PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP); INSERT INTO schema_version (version) VALUES (1);`); err != nil {
		t.Fatalf("failed to seed schema_version: %v", err)
	}

	if err := InitSchema(database); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	cols := columnNames(t, database, "status_logs")
	if !cols["trigger_source"] || !cols["last_error"] {
		t.Errorf("migration v2 not applied, columns: %v", cols)
	}
}
