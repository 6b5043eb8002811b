package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordSyncPass writes the outcome of one replay pass to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - synced: Commands confirmed by the cloud during this pass
//   - failed: Commands moved to a terminal FAILED state during this pass
//   - duration: Wall-clock time the pass took
func (c *Client) RecordSyncPass(synced, failed int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sync_pass",
		map[string]string{
			"venue_id": c.venueID,
		},
		map[string]interface{}{
			"synced":      synced,
			"failed":      failed,
			"duration_ms": float64(duration) / float64(time.Millisecond),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordCommandFailure writes a terminal command failure.
//
// The reason tag distinguishes commands rejected outright (malformed
// payloads, unknown types) from commands that exhausted their retry
// budget against a flaky cloud.
//
// Parameters:
//   - commandType: The command tag (e.g., "order", "kdsBump")
//   - reason: Failure reason (e.g., "retries_exhausted", "invalid_payload")
func (c *Client) RecordCommandFailure(commandType, reason string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"command_failure",
		map[string]string{
			"venue_id":     c.venueID,
			"command_type": commandType,
			"reason":       reason,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordQueueDepth writes a snapshot of the queue's status counts.
//
// Called periodically so dashboards can graph backlog growth while
// the venue is offline.
//
// Parameters:
//   - pending: Commands waiting for replay
//   - syncedTotal: Lifetime count of confirmed commands
//   - failedTotal: Lifetime count of terminally failed commands
func (c *Client) RecordQueueDepth(pending, syncedTotal, failedTotal int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"queue_depth",
		map[string]string{
			"venue_id": c.venueID,
		},
		map[string]interface{}{
			"pending": pending,
			"synced":  syncedTotal,
			"failed":  failedTotal,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordPoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods. The
// venue_id tag is added automatically.
func (c *Client) RecordPoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	merged := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		merged[k] = v
	}
	merged["venue_id"] = c.venueID

	point := write.NewPoint(measurement, merged, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
