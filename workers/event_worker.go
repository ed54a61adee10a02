package workers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// EventWorker consumes lifecycle events published by the API server and
// records them in the audit trail. It is the sole reader of the events
// channel; the API server never blocks on it.
type EventWorker struct {
	PG      *sql.DB
	RDB     *redis.Client
	Channel string
}

// NewEventWorker creates a new EventWorker
func NewEventWorker(pg *sql.DB, rdb *redis.Client, channel string) *EventWorker {
	return &EventWorker{PG: pg, RDB: rdb, Channel: channel}
}

// envelope mirrors the shape EventBroadcaster publishes.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Start subscribes and processes events until the context is cancelled.
func (w *EventWorker) Start(ctx context.Context) error {
	sub := w.RDB.Subscribe(ctx, w.Channel)
	defer sub.Close()

	// Fail fast if the subscription could not be established.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	log.Printf("Event worker subscribed to %s", w.Channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			w.process(ctx, msg.Payload)
		}
	}
}

func (w *EventWorker) process(ctx context.Context, raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.Printf("Skipping malformed event: %v", err)
		return
	}

	_, err := w.PG.ExecContext(ctx, `
		INSERT INTO audit_events (id, event, payload, received_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New().String(), env.Event, string(env.Payload), time.Now())
	if err != nil {
		log.Printf("Failed to record event %s: %v", env.Event, err)
		return
	}

	log.Printf("Recorded event %s", env.Event)
}
