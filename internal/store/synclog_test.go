package store

import (
	"context"
	"encoding/json"
	"testing"
)

func TestSyncLog_AppendAndList(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	id, err := st.EnqueueCommand(ctx, "req-log-1", "order", json.RawMessage(`{}`), nil)
	if err != nil {
		t.Fatalf("EnqueueCommand() error = %v", err)
	}

	if err := st.AppendSyncLog(ctx, id, "error", strPtr("connection refused")); err != nil {
		t.Fatalf("AppendSyncLog() error = %v", err)
	}
	if err := st.AppendSyncLog(ctx, id, "success", nil); err != nil {
		t.Fatalf("AppendSyncLog() error = %v", err)
	}

	entries, err := st.ListSyncLog(ctx, id)
	if err != nil {
		t.Fatalf("ListSyncLog() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Status != "error" || entries[1].Status != "success" {
		t.Errorf("statuses = [%s, %s], want [error, success]", entries[0].Status, entries[1].Status)
	}
	if entries[0].ErrorMessage == nil || *entries[0].ErrorMessage != "connection refused" {
		t.Errorf("first ErrorMessage = %v, want connection refused", entries[0].ErrorMessage)
	}
	if entries[1].ErrorMessage != nil {
		t.Errorf("second ErrorMessage = %v, want nil", entries[1].ErrorMessage)
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("Timestamp is zero, want set")
	}
}

func TestSyncLog_EmptyForUnknownCommand(t *testing.T) {
	st := setupTestStore(t)

	entries, err := st.ListSyncLog(context.Background(), 9999)
	if err != nil {
		t.Fatalf("ListSyncLog() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}
