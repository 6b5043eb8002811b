// Package queue is the command queue and sync engine, the heart of the
// gateway's offline-first guarantee.
//
// Devices enqueue commands through the hub; each gets a fresh UUID request
// ID and a durable PENDING row before the caller hears back. A background
// pass, driven by a timer and triggered opportunistically after enqueue,
// probes cloud reachability and replays pending commands oldest first.
// Successes go SYNCED; failures burn retry budget and eventually go FAILED.
// Both end states are terminal and the engine is the only writer of
// command status.
//
// A single-flight guard ensures at most one pass runs at a time; overlapping
// triggers are no-ops.
package queue
