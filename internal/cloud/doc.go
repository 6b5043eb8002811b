// Package cloud talks to the platform's cloud API on behalf of the gateway.
//
// It has two jobs: a cheap reachability probe used to gate sync passes, and
// the command replayer that turns a queued command into the concrete cloud
// request for its kind. Every replayed request carries the command's
// request ID as an idempotency key so the cloud can deduplicate a retry
// whose original attempt succeeded server-side but whose response was lost.
//
// The package never touches the local database; queue bookkeeping belongs
// to the sync engine.
package cloud
