package mqtt

import "fmt"

// Topics builds venue-scoped topic names. Every topic lives under
// edge/{venue_id}/ so multiple gateways can share a broker during testing
// without cross-talk.
type Topics struct {
	VenueID string
}

// CommandQueued is published when a device command lands in the queue.
//
// Example: edge/venue-42/queue/command_queued
func (t Topics) CommandQueued() string {
	return fmt.Sprintf("edge/%s/queue/command_queued", t.VenueID)
}

// CommandFailed is published when a command reaches terminal FAILED.
//
// Example: edge/venue-42/queue/command_failed
func (t Topics) CommandFailed() string {
	return fmt.Sprintf("edge/%s/queue/command_failed", t.VenueID)
}

// SyncPass is published after each sync pass with aggregate counts.
//
// Example: edge/venue-42/sync/pass
func (t Topics) SyncPass() string {
	return fmt.Sprintf("edge/%s/sync/pass", t.VenueID)
}

// SystemStatus carries the gateway's online/offline state, retained so new
// subscribers see the last status. Also used for the LWT.
//
// Example: edge/venue-42/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("edge/%s/system/status", t.VenueID)
}
