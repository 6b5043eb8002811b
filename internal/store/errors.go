package store

import "errors"

// Domain errors for the store package. Check with errors.Is().
var (
	// ErrCacheMiss is returned when a cache key is absent or expired.
	ErrCacheMiss = errors.New("store: cache miss")

	// ErrDuplicateRequestID is returned when enqueueing a command whose
	// request ID already exists. Request IDs are idempotency keys and are
	// never reused.
	ErrDuplicateRequestID = errors.New("store: duplicate request id")

	// ErrCommandNotFound is returned when a command ID does not exist.
	ErrCommandNotFound = errors.New("store: command not found")

	// ErrCommandNotPending is returned when mutating a command that has
	// already reached a terminal status. PENDING is the only mutable state.
	ErrCommandNotPending = errors.New("store: command not pending")

	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("store: device not found")
)
