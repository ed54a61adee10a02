package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"
)

// EventsChannel is the Redis pub/sub channel live clients subscribe to.
const EventsChannel = "atelier:events"

// EventBroadcaster publishes lifecycle events for connected clients.
// Publishing is best-effort: failures are logged and never change the
// outcome of the operation that triggered them.
type EventBroadcaster struct {
	rdb *redis.Client
}

// NewEventBroadcaster creates a new EventBroadcaster. A nil client disables
// broadcasting.
func NewEventBroadcaster(rdb *redis.Client) *EventBroadcaster {
	return &EventBroadcaster{rdb: rdb}
}

// Publish emits one event on the shared channel.
func (b *EventBroadcaster) Publish(ctx context.Context, event string, payload interface{}) {
	if b == nil || b.rdb == nil {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		log.Printf("broadcast: failed to marshal %s event: %v", event, err)
		return
	}

	if err := b.rdb.Publish(ctx, EventsChannel, body).Err(); err != nil {
		log.Printf("broadcast: failed to publish %s event: %v", event, err)
	}
}

// ProjectProvisioned announces that a project finished provisioning
// (director role and container in place).
func (b *EventBroadcaster) ProjectProvisioned(ctx context.Context, projectID, creatorID string) {
	b.Publish(ctx, "project.provisioned", map[string]string{
		"project_id": projectID,
		"creator_id": creatorID,
	})
}
