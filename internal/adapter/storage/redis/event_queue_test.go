package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueue(t *testing.T) *EventQueue {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	return NewEventQueue(client, "webhook:events", 100*time.Millisecond)
}

func TestEventQueue_PublishConsumeFIFO(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	require.NoError(t, q.Publish(ctx, first))
	require.NoError(t, q.Publish(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := q.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = q.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestEventQueue_ConsumeStopsOnContextCancel(t *testing.T) {
	q := testQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err := q.Consume(ctx)
	assert.Error(t, err)
}

func TestEventQueue_MalformedEntry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	q := NewEventQueue(client, "webhook:events", 100*time.Millisecond)

	require.NoError(t, client.LPush(context.Background(), "webhook:events", "not-a-uuid").Err())

	_, err := q.Consume(context.Background())
	assert.ErrorContains(t, err, "malformed queue entry")
}
