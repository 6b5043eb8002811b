package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestEnqueueCommand_DuplicateRequestID(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"total":12.50}`)
	if _, err := st.EnqueueCommand(ctx, "req-001", "order", payload, nil); err != nil {
		t.Fatalf("first EnqueueCommand() error = %v", err)
	}

	_, err := st.EnqueueCommand(ctx, "req-001", "order", payload, nil)
	if !errors.Is(err, ErrDuplicateRequestID) {
		t.Errorf("second EnqueueCommand() error = %v, want ErrDuplicateRequestID", err)
	}

	// Only one row exists.
	stats, err := st.CommandStats(ctx)
	if err != nil {
		t.Fatalf("CommandStats() error = %v", err)
	}
	if stats.Pending != 1 {
		t.Errorf("Pending = %d, want 1", stats.Pending)
	}
}

func TestListPendingCommands_OldestFirst(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		reqID := fmt.Sprintf("req-%03d", i)
		if _, err := st.EnqueueCommand(ctx, reqID, "order", nil, nil); err != nil {
			t.Fatalf("EnqueueCommand(%s) error = %v", reqID, err)
		}
	}

	pending, err := st.ListPendingCommands(ctx, 50)
	if err != nil {
		t.Fatalf("ListPendingCommands() error = %v", err)
	}
	if len(pending) != 5 {
		t.Fatalf("len(pending) = %d, want 5", len(pending))
	}
	for i, cmd := range pending {
		want := fmt.Sprintf("req-%03d", i)
		if cmd.RequestID != want {
			t.Errorf("pending[%d].RequestID = %q, want %q", i, cmd.RequestID, want)
		}
	}
}

func TestListPendingCommands_Limit(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := st.EnqueueCommand(ctx, fmt.Sprintf("req-%d", i), "order", nil, nil); err != nil {
			t.Fatalf("EnqueueCommand() error = %v", err)
		}
	}

	pending, err := st.ListPendingCommands(ctx, 3)
	if err != nil {
		t.Fatalf("ListPendingCommands() error = %v", err)
	}
	if len(pending) != 3 {
		t.Errorf("len(pending) = %d, want 3", len(pending))
	}
}

func TestListPendingCommands_ExcludesTerminal(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	syncedID, err := st.EnqueueCommand(ctx, "req-synced", "order", nil, nil)
	if err != nil {
		t.Fatalf("EnqueueCommand() error = %v", err)
	}
	failedID, err := st.EnqueueCommand(ctx, "req-failed", "order", nil, nil)
	if err != nil {
		t.Fatalf("EnqueueCommand() error = %v", err)
	}
	if _, err := st.EnqueueCommand(ctx, "req-pending", "order", nil, nil); err != nil {
		t.Fatalf("EnqueueCommand() error = %v", err)
	}

	if err := st.MarkCommandSynced(ctx, syncedID, time.Now()); err != nil {
		t.Fatalf("MarkCommandSynced() error = %v", err)
	}
	if err := st.MarkCommandFailed(ctx, failedID, "boom"); err != nil {
		t.Fatalf("MarkCommandFailed() error = %v", err)
	}

	pending, err := st.ListPendingCommands(ctx, 50)
	if err != nil {
		t.Fatalf("ListPendingCommands() error = %v", err)
	}
	if len(pending) != 1 || pending[0].RequestID != "req-pending" {
		t.Errorf("pending = %+v, want only req-pending", pending)
	}
}

func TestStatusTransitions_TerminalStatesAreFinal(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	id, err := st.EnqueueCommand(ctx, "req-001", "order", nil, nil)
	if err != nil {
		t.Fatalf("EnqueueCommand() error = %v", err)
	}
	if err := st.MarkCommandSynced(ctx, id, time.Now()); err != nil {
		t.Fatalf("MarkCommandSynced() error = %v", err)
	}

	// A synced command can never be failed, re-synced, or retried.
	if err := st.MarkCommandFailed(ctx, id, "late failure"); !errors.Is(err, ErrCommandNotPending) {
		t.Errorf("MarkCommandFailed() after sync error = %v, want ErrCommandNotPending", err)
	}
	if err := st.MarkCommandSynced(ctx, id, time.Now()); !errors.Is(err, ErrCommandNotPending) {
		t.Errorf("MarkCommandSynced() twice error = %v, want ErrCommandNotPending", err)
	}
	if err := st.IncrementRetryCount(ctx, id, "x"); !errors.Is(err, ErrCommandNotPending) {
		t.Errorf("IncrementRetryCount() after sync error = %v, want ErrCommandNotPending", err)
	}

	cmd, err := st.GetCommandByID(ctx, id)
	if err != nil {
		t.Fatalf("GetCommandByID() error = %v", err)
	}
	if cmd.Status != StatusSynced {
		t.Errorf("Status = %q, want SYNCED", cmd.Status)
	}
}

func TestMutators_UnknownCommand(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if err := st.MarkCommandSynced(ctx, 999, time.Now()); !errors.Is(err, ErrCommandNotFound) {
		t.Errorf("MarkCommandSynced(999) error = %v, want ErrCommandNotFound", err)
	}
	if _, err := st.GetCommandByID(ctx, 999); !errors.Is(err, ErrCommandNotFound) {
		t.Errorf("GetCommandByID(999) error = %v, want ErrCommandNotFound", err)
	}
}

func TestIncrementRetryCount(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	id, err := st.EnqueueCommand(ctx, "req-001", "payment", nil, strPtr("pos-1"))
	if err != nil {
		t.Fatalf("EnqueueCommand() error = %v", err)
	}

	for i := 1; i <= 3; i++ {
		if err := st.IncrementRetryCount(ctx, id, "connection refused"); err != nil {
			t.Fatalf("IncrementRetryCount() error = %v", err)
		}
	}

	cmd, err := st.GetCommandByID(ctx, id)
	if err != nil {
		t.Fatalf("GetCommandByID() error = %v", err)
	}
	if cmd.RetryCount != 3 {
		t.Errorf("RetryCount = %d, want 3", cmd.RetryCount)
	}
	if cmd.Status != StatusPending {
		t.Errorf("Status = %q, want PENDING after retries", cmd.Status)
	}
	if cmd.ErrorMessage == nil || *cmd.ErrorMessage != "connection refused" {
		t.Errorf("ErrorMessage = %v, want connection refused", cmd.ErrorMessage)
	}
	if cmd.DeviceID == nil || *cmd.DeviceID != "pos-1" {
		t.Errorf("DeviceID = %v, want pos-1", cmd.DeviceID)
	}
}

// TestCommands_SurviveReopen simulates an outage plus process restart:
// commands enqueued before the restart must still be PENDING with intact
// payloads after reopening the database file.
func TestCommands_SurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.db")
	ctx := context.Background()

	st, db := openFileStore(t, path, true)
	payload := json.RawMessage(`{"table":7,"items":["haddock"]}`)
	if _, err := st.EnqueueCommand(ctx, "req-outage", "order", payload, strPtr("pos-2")); err != nil {
		t.Fatalf("EnqueueCommand() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("closing database: %v", err)
	}

	st2, db2 := openFileStore(t, path, false)
	defer db2.Close() //nolint:errcheck // test cleanup

	pending, err := st2.ListPendingCommands(ctx, 50)
	if err != nil {
		t.Fatalf("ListPendingCommands() after reopen error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
	cmd := pending[0]
	if cmd.RequestID != "req-outage" || cmd.Status != StatusPending {
		t.Errorf("command = %+v, want PENDING req-outage", cmd)
	}
	if string(cmd.Payload) != string(payload) {
		t.Errorf("Payload = %s, want %s", cmd.Payload, payload)
	}
}
