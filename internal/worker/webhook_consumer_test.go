package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardflow/internal/adapter/storage/memory"
	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/internal/core/ports/mocks"
	"cardflow/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var workerTestTime = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type consumerFixture struct {
	events   *memory.WebhookEventRepository
	queue    *mocks.MockEventConsumer
	webhooks ports.WebhookService
	clock    *fixedClock
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	events := memory.NewWebhookEventRepository()
	publisher := mocks.NewMockEventPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	clock := &fixedClock{now: workerTestTime}
	return &consumerFixture{
		events:   events,
		queue:    mocks.NewMockEventConsumer(ctrl),
		webhooks: service.NewWebhookService(events, publisher, clock, zerolog.Nop()),
		clock:    clock,
	}
}

func (f *consumerFixture) record(t *testing.T, eventID string) *domain.WebhookEvent {
	t.Helper()
	event, duplicate, err := f.webhooks.RecordEvent(context.Background(), ports.RecordEventCommand{
		EventID:   eventID,
		EventType: "net.authorize.payment.authcapture.created",
		Payload:   []byte(`{"notificationId":"` + eventID + `"}`),
	})
	require.NoError(t, err)
	require.False(t, duplicate)
	return event
}

// drainAfter makes the queue hand out the given IDs in order and then cancel
// the run loop.
func (f *consumerFixture) drainAfter(ctx context.Context, cancel context.CancelFunc, ids ...uuid.UUID) {
	calls := f.queue.EXPECT().Consume(gomock.Any()).Times(len(ids))
	i := 0
	calls.DoAndReturn(func(context.Context) (uuid.UUID, error) {
		id := ids[i]
		i++
		return id, nil
	})
	f.queue.EXPECT().Consume(gomock.Any()).DoAndReturn(func(context.Context) (uuid.UUID, error) {
		cancel()
		return uuid.Nil, ctx.Err()
	}).AnyTimes()
}

func TestConsumerCompletesHandledEvent(t *testing.T) {
	f := newConsumerFixture(t)
	event := f.record(t, "evt-1001")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.drainAfter(ctx, cancel, event.ID)

	var handled []string
	consumer := NewWebhookConsumer(f.webhooks, f.queue, func(_ context.Context, e *domain.WebhookEvent) error {
		handled = append(handled, e.EventID)
		return nil
	}, zerolog.Nop())
	consumer.Run(ctx)

	assert.Equal(t, []string{"evt-1001"}, handled)
	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusCompleted, stored.ProcessedStatus)
	require.NotNil(t, stored.ProcessedAt)
}

func TestConsumerMarksEventFailedOnHandlerError(t *testing.T) {
	f := newConsumerFixture(t)
	event := f.record(t, "evt-1002")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.drainAfter(ctx, cancel, event.ID)

	consumer := NewWebhookConsumer(f.webhooks, f.queue, func(context.Context, *domain.WebhookEvent) error {
		return errors.New("order reconciliation failed")
	}, zerolog.Nop())
	consumer.Run(ctx)

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusFailed, stored.ProcessedStatus)
	assert.Equal(t, "order reconciliation failed", stored.FailureReason)
}

func TestConsumerSkipsEventClaimedElsewhere(t *testing.T) {
	f := newConsumerFixture(t)
	event := f.record(t, "evt-1003")
	require.NoError(t, f.webhooks.MarkProcessing(context.Background(), event))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.drainAfter(ctx, cancel, event.ID)

	consumer := NewWebhookConsumer(f.webhooks, f.queue, func(context.Context, *domain.WebhookEvent) error {
		t.Fatal("handler must not run for a claimed event")
		return nil
	}, zerolog.Nop())
	consumer.Run(ctx)

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusProcessing, stored.ProcessedStatus)
}

func TestConsumerIgnoresUnknownEventID(t *testing.T) {
	f := newConsumerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.drainAfter(ctx, cancel, uuid.New())

	consumer := NewWebhookConsumer(f.webhooks, f.queue, func(context.Context, *domain.WebhookEvent) error {
		t.Fatal("handler must not run for an unknown event")
		return nil
	}, zerolog.Nop())
	consumer.Run(ctx)
}

func TestConsumerContinuesAfterTransientQueueError(t *testing.T) {
	f := newConsumerFixture(t)
	event := f.record(t, "evt-1004")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := f.queue.EXPECT().Consume(gomock.Any()).Return(uuid.Nil, errors.New("connection reset"))
	f.queue.EXPECT().Consume(gomock.Any()).Return(event.ID, nil).After(first)
	f.queue.EXPECT().Consume(gomock.Any()).DoAndReturn(func(context.Context) (uuid.UUID, error) {
		cancel()
		return uuid.Nil, ctx.Err()
	}).AnyTimes()

	consumer := NewWebhookConsumer(f.webhooks, f.queue, func(context.Context, *domain.WebhookEvent) error {
		return nil
	}, zerolog.Nop())
	consumer.Run(ctx)

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusCompleted, stored.ProcessedStatus)
}
