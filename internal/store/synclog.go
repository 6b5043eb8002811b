package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendSyncLog records one sync attempt outcome. The log is append-only;
// rows are never mutated or deleted.
func (s *Store) AppendSyncLog(ctx context.Context, commandID int64, status string, errorMessage *string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (command_id, status, error_message, timestamp)
		VALUES (?, ?, ?, ?)`,
		commandID,
		status,
		nullableString(errorMessage),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("appending sync log: %w", err)
	}
	return nil
}

// ListSyncLog returns all attempt records for a command, oldest first.
func (s *Store) ListSyncLog(ctx context.Context, commandID int64) ([]SyncLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command_id, status, error_message, timestamp
		FROM sync_log
		WHERE command_id = ?
		ORDER BY id ASC`,
		commandID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sync log: %w", err)
	}
	defer rows.Close()

	var entries []SyncLogEntry
	for rows.Next() {
		var e SyncLogEntry
		var errorMessage sql.NullString
		var timestamp string
		if err := rows.Scan(&e.ID, &e.CommandID, &e.Status, &errorMessage, &timestamp); err != nil {
			return nil, fmt.Errorf("scanning sync log row: %w", err)
		}
		e.ErrorMessage = stringPtr(errorMessage)
		e.Timestamp, err = parseTime(timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync log rows: %w", err)
	}
	return entries, nil
}
