package store

import (
	"database/sql"
	"strings"
	"time"
)

// timeFormat is the timestamp encoding used for every column. RFC3339 with a
// fixed-width nanosecond fraction, so UTC timestamps compare correctly as
// strings in SQL (RFC3339Nano trims trailing zeros and loses that property).
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store provides all persistence operations over one SQLite connection.
// It is safe for concurrent use; SQLite serialises writers via the single
// connection configured by the database package.
type Store struct {
	db *sql.DB
}

// New creates a Store over an open database connection with the schema
// already migrated.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// nullableString converts an optional string pointer for storage.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr converts a nullable column back to an optional string.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// formatTime encodes a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime decodes a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

// isUniqueConstraintError reports whether err is a SQLite unique constraint
// violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
