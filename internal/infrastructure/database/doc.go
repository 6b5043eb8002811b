// Package database manages the gateway's local SQLite store.
//
// It opens the database with write-ahead logging enabled so concurrent device
// reads are never blocked by the sync engine's writes, and applies embedded
// schema migrations idempotently on startup. Storage failures here are fatal
// by design: the process exits so a supervisor restarts it rather than running
// with a store in an indeterminate state.
package database
