package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// commandColumns is the column list shared by all queued_commands queries.
const commandColumns = `id, request_id, type, payload, status, retry_count,
	error_message, device_id, created_at, synced_at`

// EnqueueCommand persists a new command with status PENDING and returns its
// local ID. Returns ErrDuplicateRequestID if the request ID already exists;
// enqueue is idempotent at the source.
func (s *Store) EnqueueCommand(ctx context.Context, requestID, cmdType string, payload json.RawMessage, deviceID *string) (int64, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO queued_commands (request_id, type, payload, status, retry_count, device_id, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		requestID,
		cmdType,
		string(payload),
		string(StatusPending),
		nullableString(deviceID),
		formatTime(time.Now()),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, ErrDuplicateRequestID
		}
		return 0, fmt.Errorf("inserting command: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading command id: %w", err)
	}
	return id, nil
}

// ListPendingCommands returns up to limit PENDING commands ordered oldest
// first. This ordering defines replay order; the id tiebreak keeps it
// deterministic for commands created in the same instant.
func (s *Store) ListPendingCommands(ctx context.Context, limit int) ([]QueuedCommand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commandColumns+`
		FROM queued_commands
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`,
		string(StatusPending),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending commands: %w", err)
	}
	defer rows.Close()

	var commands []QueuedCommand
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		commands = append(commands, *cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commands: %w", err)
	}
	return commands, nil
}

// GetCommandByID returns a single command, or ErrCommandNotFound.
func (s *Store) GetCommandByID(ctx context.Context, id int64) (*QueuedCommand, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+commandColumns+" FROM queued_commands WHERE id = ?", id,
	)
	cmd, err := scanCommand(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommandNotFound
		}
		return nil, fmt.Errorf("querying command by id: %w", err)
	}
	return cmd, nil
}

// MarkCommandSynced transitions a PENDING command to SYNCED with a completion
// timestamp. The status predicate makes the update transactional per row: a
// command that already reached a terminal state is never touched again, and
// the call reports ErrCommandNotPending instead.
func (s *Store) MarkCommandSynced(ctx context.Context, id int64, syncedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE queued_commands
		SET status = ?, synced_at = ?, error_message = NULL
		WHERE id = ? AND status = ?`,
		string(StatusSynced),
		formatTime(syncedAt),
		id,
		string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("marking command synced: %w", err)
	}
	return s.requirePendingRow(ctx, result, id)
}

// MarkCommandFailed transitions a PENDING command to FAILED, recording the
// error. FAILED is terminal; the command is never attempted again.
func (s *Store) MarkCommandFailed(ctx context.Context, id int64, errorMessage string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE queued_commands
		SET status = ?, error_message = ?
		WHERE id = ? AND status = ?`,
		string(StatusFailed),
		errorMessage,
		id,
		string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("marking command failed: %w", err)
	}
	return s.requirePendingRow(ctx, result, id)
}

// IncrementRetryCount bumps the retry counter of a PENDING command, recording
// the error from the failed attempt. The command stays PENDING and keeps its
// original queue position.
func (s *Store) IncrementRetryCount(ctx context.Context, id int64, errorMessage string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE queued_commands
		SET retry_count = retry_count + 1, error_message = ?
		WHERE id = ? AND status = ?`,
		errorMessage,
		id,
		string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("incrementing retry count: %w", err)
	}
	return s.requirePendingRow(ctx, result, id)
}

// CommandStats returns aggregate counts per status.
func (s *Store) CommandStats(ctx context.Context) (QueueStats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM queued_commands GROUP BY status",
	)
	if err != nil {
		return QueueStats{}, fmt.Errorf("querying command stats: %w", err)
	}
	defer rows.Close()

	var stats QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return QueueStats{}, fmt.Errorf("scanning stats row: %w", err)
		}
		switch CommandStatus(status) {
		case StatusPending:
			stats.Pending = count
		case StatusSynced:
			stats.Synced = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return QueueStats{}, fmt.Errorf("iterating stats rows: %w", err)
	}
	return stats, nil
}

// requirePendingRow distinguishes "no such command" from "command already
// terminal" when a status-guarded update matched nothing.
func (s *Store) requirePendingRow(ctx context.Context, result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM queued_commands WHERE id = ?", id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking command exists: %w", err)
	}
	if exists == 0 {
		return ErrCommandNotFound
	}
	return ErrCommandNotPending
}

// rowScanner is satisfied by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCommand scans one queued_commands row.
func scanCommand(scanner rowScanner) (*QueuedCommand, error) {
	var cmd QueuedCommand
	var payload, status, createdAt string
	var errorMessage, deviceID, syncedAt sql.NullString

	err := scanner.Scan(
		&cmd.ID,
		&cmd.RequestID,
		&cmd.Type,
		&payload,
		&status,
		&cmd.RetryCount,
		&errorMessage,
		&deviceID,
		&createdAt,
		&syncedAt,
	)
	if err != nil {
		return nil, err
	}

	cmd.Payload = json.RawMessage(payload)
	cmd.Status = CommandStatus(status)
	cmd.ErrorMessage = stringPtr(errorMessage)
	cmd.DeviceID = stringPtr(deviceID)

	cmd.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if syncedAt.Valid {
		t, err := parseTime(syncedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing synced_at: %w", err)
		}
		cmd.SyncedAt = &t
	}

	return &cmd, nil
}
