package store

import (
	"encoding/json"
	"time"
)

// CommandStatus is the lifecycle state of a queued command.
//
// Transitions: PENDING→SYNCED, PENDING→PENDING (retry), PENDING→FAILED.
// SYNCED and FAILED are terminal; a command never leaves either.
type CommandStatus string

const (
	StatusPending CommandStatus = "PENDING"
	StatusSynced  CommandStatus = "SYNCED"
	StatusFailed  CommandStatus = "FAILED"
)

// QueuedCommand is one durable row in the command queue.
type QueuedCommand struct {
	// ID is the monotonic local identifier (SQLite rowid).
	ID int64 `json:"id"`

	// RequestID is the globally unique idempotency key attached to the
	// replayed cloud request so the cloud can deduplicate retries.
	RequestID string `json:"request_id"`

	// Type selects the replay route. The payload itself is opaque.
	Type string `json:"type"`

	Payload      json.RawMessage `json:"payload"`
	Status       CommandStatus   `json:"status"`
	RetryCount   int             `json:"retry_count"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	DeviceID     *string         `json:"device_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	SyncedAt     *time.Time      `json:"synced_at,omitempty"`
}

// CacheEntry is a TTL-bounded copy of cloud data served while offline.
type CacheEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// Device is a registered in-venue device (POS terminal, KDS screen).
type Device struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	DeviceType string    `json:"device_type"`
	IPAddress  *string   `json:"ip_address,omitempty"`
	Paired     bool      `json:"paired"`
	LastSeen   time.Time `json:"last_seen"`
	CreatedAt  time.Time `json:"created_at"`
}

// Online reports whether the device has been seen within the threshold.
// Staleness is derived at read time; device rows are never deleted.
func (d *Device) Online(threshold time.Duration) bool {
	return time.Since(d.LastSeen) <= threshold
}

// SyncLogEntry is one append-only record of a sync attempt outcome.
type SyncLogEntry struct {
	ID           int64     `json:"id"`
	CommandID    int64     `json:"command_id"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// QueueStats holds aggregate queue counts for observability.
type QueueStats struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}
