package mqtt

import (
	"encoding/json"
	"time"

	"github.com/platefront/edge-gateway/internal/infrastructure/logging"
)

// EventBus publishes queue and sync lifecycle events. It satisfies the sync
// engine's EventPublisher hook.
//
// Publishing is best-effort: a broker outage is logged at Debug and
// otherwise ignored, so the bus can never stall a sync pass.
type EventBus struct {
	client *Client
	topics Topics
	logger *logging.Logger
}

// NewEventBus creates an event bus over an established client.
func NewEventBus(client *Client, venueID string, logger *logging.Logger) *EventBus {
	return &EventBus{
		client: client,
		topics: Topics{VenueID: venueID},
		logger: logger.With("component", "event_bus"),
	}
}

// PublishCommandQueued announces a freshly queued command.
func (b *EventBus) PublishCommandQueued(requestID, commandType string) {
	b.publish(b.topics.CommandQueued(), map[string]any{
		"request_id": requestID,
		"type":       commandType,
	})
}

// PublishSyncPass announces the outcome of a sync pass.
func (b *EventBus) PublishSyncPass(synced, failed int) {
	b.publish(b.topics.SyncPass(), map[string]any{
		"synced": synced,
		"failed": failed,
	})
}

// PublishCommandFailed announces a command reaching terminal FAILED.
func (b *EventBus) PublishCommandFailed(requestID, reason string) {
	b.publish(b.topics.CommandFailed(), map[string]any{
		"request_id": requestID,
		"reason":     reason,
	})
}

func (b *EventBus) publish(topic string, body map[string]any) {
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(body)
	if err != nil {
		b.logger.Debug("marshalling event payload", "topic", topic, "error", err)
		return
	}
	if err := b.client.Publish(topic, payload, false); err != nil {
		b.logger.Debug("publishing event", "topic", topic, "error", err)
	}
}
