package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// EventQueue is a Redis list carrying webhook event IDs from ingestion to the
// consumer. It implements both ports.EventPublisher and ports.EventConsumer.
type EventQueue struct {
	client  *goredis.Client
	topic   string
	blockMs time.Duration
}

// NewEventQueue creates an event queue on the given list key. blockFor bounds
// how long Consume blocks per BRPOP round so context cancellation is noticed.
func NewEventQueue(client *goredis.Client, topic string, blockFor time.Duration) *EventQueue {
	if blockFor <= 0 {
		blockFor = time.Second
	}
	return &EventQueue{client: client, topic: topic, blockMs: blockFor}
}

// Publish pushes an event ID onto the queue.
func (q *EventQueue) Publish(ctx context.Context, eventID uuid.UUID) error {
	if err := q.client.LPush(ctx, q.topic, eventID.String()).Err(); err != nil {
		return fmt.Errorf("redis queue publish: %w", err)
	}
	return nil
}

// Consume blocks until an event ID is available or ctx is done. A queue entry
// that is not a UUID is dropped with an error so the consumer loop can log
// and move on.
func (q *EventQueue) Consume(ctx context.Context) (uuid.UUID, error) {
	for {
		if err := ctx.Err(); err != nil {
			return uuid.Nil, err
		}
		vals, err := q.client.BRPop(ctx, q.blockMs, q.topic).Result()
		if err != nil {
			if err == goredis.Nil {
				continue // poll round elapsed, re-check ctx
			}
			return uuid.Nil, fmt.Errorf("redis queue consume: %w", err)
		}
		// BRPOP returns [key, value].
		if len(vals) != 2 {
			continue
		}
		id, err := uuid.Parse(vals[1])
		if err != nil {
			return uuid.Nil, fmt.Errorf("malformed queue entry %q: %w", vals[1], err)
		}
		return id, nil
	}
}

// Len reports the queue depth.
func (q *EventQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.topic).Result()
	if err != nil {
		return 0, fmt.Errorf("redis queue len: %w", err)
	}
	return n, nil
}
