package store

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testSchema mirrors migrations/20260812_090000_initial_schema.up.sql.
const testSchema = `
	CREATE TABLE cache_entries (
		key        TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE TABLE queued_commands (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id    TEXT NOT NULL UNIQUE,
		type          TEXT NOT NULL,
		payload       TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'PENDING'
		              CHECK (status IN ('PENDING', 'SYNCED', 'FAILED')),
		retry_count   INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		device_id     TEXT,
		created_at    TEXT NOT NULL,
		synced_at     TEXT
	);
	CREATE TABLE devices (
		device_id   TEXT PRIMARY KEY,
		device_name TEXT NOT NULL,
		device_type TEXT NOT NULL,
		ip_address  TEXT,
		paired      INTEGER NOT NULL DEFAULT 0,
		last_seen   TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE TABLE sync_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		command_id    INTEGER NOT NULL REFERENCES queued_commands(id),
		status        TEXT NOT NULL,
		error_message TEXT,
		timestamp     TEXT NOT NULL
	);
`

// setupTestStore creates a Store over an in-memory database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if _, err := db.Exec(testSchema); err != nil {
		db.Close()
		t.Fatalf("creating test schema: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // test cleanup
	})
	return New(db)
}

// openFileStore creates a Store over a file-backed database so tests can
// simulate a process restart by reopening the same file.
func openFileStore(t *testing.T, path string, createSchema bool) (*Store, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if createSchema {
		if _, err := db.Exec(testSchema); err != nil {
			db.Close()
			t.Fatalf("creating test schema: %v", err)
		}
	}
	return New(db), db
}

func strPtr(s string) *string {
	return &s
}
