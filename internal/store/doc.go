// Package store implements the gateway's persistent store on SQLite.
//
// It owns all on-disk state: the TTL-bounded cache of cloud data, the durable
// command queue, the device registry, and the append-only sync log. Side
// effects are confined to local disk; the package performs no network I/O.
//
// # Ownership rules
//
//   - Queue row status is mutated only through MarkCommandSynced,
//     MarkCommandFailed, and IncrementRetryCount, and only while the row is
//     still PENDING. SYNCED and FAILED are terminal.
//   - Queue rows are never deleted; they form the audit trail together with
//     the sync log.
//   - Device liveness (last_seen) is written only by the hub and discovery.
//
// # Usage
//
//	st := store.New(db.DB)
//	id, err := st.EnqueueCommand(ctx, requestID, "order", payload, &deviceID)
//	if errors.Is(err, store.ErrDuplicateRequestID) {
//	    // the same request was already queued; nothing to do
//	}
package store
