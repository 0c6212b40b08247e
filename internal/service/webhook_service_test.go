package service

import (
	"context"
	"testing"
	"time"

	"cardflow/internal/adapter/storage/memory"
	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/internal/core/ports/mocks"
	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type webhookFixture struct {
	events    *memory.WebhookEventRepository
	publisher *mocks.MockEventPublisher
	clock     *mutableClock
	svc       ports.WebhookService
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &webhookFixture{
		events:    memory.NewWebhookEventRepository(),
		publisher: mocks.NewMockEventPublisher(ctrl),
		clock:     &mutableClock{now: testTime},
	}
	f.svc = NewWebhookService(f.events, f.publisher, f.clock, zerolog.Nop())
	return f
}

func TestRecordEventStoresAndPublishes(t *testing.T) {
	f := newWebhookFixture(t)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	event, duplicate, err := f.svc.RecordEvent(context.Background(), ports.RecordEventCommand{
		EventID:   "evt-1",
		EventType: "net.authorize.payment.capture.created",
		Payload:   []byte(`{"id":"evt-1"}`),
		Signature: "sha512=cafe",
	})
	require.NoError(t, err)
	assert.False(t, duplicate)
	assert.Equal(t, domain.WebhookStatusPending, event.ProcessedStatus)
	assert.Equal(t, domain.DedupeHash(`{"id":"evt-1"}`), event.DedupeHash)
	assert.Equal(t, "sha512=cafe", event.Signature)
}

func TestRecordEventDuplicateDeliveryIsNoOp(t *testing.T) {
	f := newWebhookFixture(t)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	cmd := ports.RecordEventCommand{EventID: "evt-dup", EventType: "t", Payload: []byte(`{}`)}
	first, duplicate, err := f.svc.RecordEvent(context.Background(), cmd)
	require.NoError(t, err)
	require.False(t, duplicate)

	second, duplicate, err := f.svc.RecordEvent(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, first.ID, second.ID)
}

func TestRecordEventMissingID(t *testing.T) {
	f := newWebhookFixture(t)
	_, _, err := f.svc.RecordEvent(context.Background(), ports.RecordEventCommand{Payload: []byte(`{}`)})
	assert.Equal(t, "VALIDATION", apperror.Code(err))
}

func TestRecordEventSurvivesPublishFailure(t *testing.T) {
	f := newWebhookFixture(t)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(assert.AnError)

	event, _, err := f.svc.RecordEvent(context.Background(), ports.RecordEventCommand{
		EventID: "evt-q", EventType: "t", Payload: []byte(`{}`),
	})
	require.NoError(t, err)

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusPending, stored.ProcessedStatus)
}

func (f *webhookFixture) recorded(t *testing.T, eventID string) *domain.WebhookEvent {
	t.Helper()
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	event, _, err := f.svc.RecordEvent(context.Background(), ports.RecordEventCommand{
		EventID: eventID, EventType: "t", Payload: []byte(`{"id":"` + eventID + `"}`),
	})
	require.NoError(t, err)
	return event
}

func TestWebhookProcessingLifecycle(t *testing.T) {
	f := newWebhookFixture(t)
	event := f.recorded(t, "evt-life")

	require.NoError(t, f.svc.MarkProcessing(context.Background(), event))
	assert.Equal(t, domain.WebhookStatusProcessing, event.ProcessedStatus)

	require.NoError(t, f.svc.MarkCompleted(context.Background(), event))
	assert.Equal(t, domain.WebhookStatusCompleted, event.ProcessedStatus)

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusCompleted, stored.ProcessedStatus)
}

func TestMarkProcessingSingleWinner(t *testing.T) {
	f := newWebhookFixture(t)
	event := f.recorded(t, "evt-race")

	// Two consumers hold the same snapshot of the event.
	copy1 := *event
	copy2 := *event

	require.NoError(t, f.svc.MarkProcessing(context.Background(), &copy1))

	err := f.svc.MarkProcessing(context.Background(), &copy2)
	assert.Equal(t, apperror.CodeVersionConflict, apperror.Code(err))
}

func TestMarkCompletedRequiresProcessing(t *testing.T) {
	f := newWebhookFixture(t)
	event := f.recorded(t, "evt-pending")

	err := f.svc.MarkCompleted(context.Background(), event)
	assert.Equal(t, "INVALID_STATE", apperror.Code(err))
}

func TestFetchNextPendingOldestFirst(t *testing.T) {
	f := newWebhookFixture(t)
	first := f.recorded(t, "evt-old")
	f.clock.now = f.clock.now.Add(time.Minute)
	f.recorded(t, "evt-new")

	next, err := f.svc.FetchNextPending(context.Background())
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, first.ID, next.ID)
}

func TestRequeueStaleRepublishesAbandonedEvents(t *testing.T) {
	f := newWebhookFixture(t)
	event := f.recorded(t, "evt-stale")
	require.NoError(t, f.svc.MarkProcessing(context.Background(), event))

	f.clock.now = f.clock.now.Add(10 * time.Minute)
	f.publisher.EXPECT().Publish(gomock.Any(), event.ID).Return(nil)

	n, err := f.svc.RequeueStale(context.Background(), f.clock.now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.events.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusPending, stored.ProcessedStatus)
	assert.Nil(t, stored.ProcessedAt)
}

func TestRequeueStaleLeavesFreshProcessingAlone(t *testing.T) {
	f := newWebhookFixture(t)
	event := f.recorded(t, "evt-fresh")
	require.NoError(t, f.svc.MarkProcessing(context.Background(), event))

	n, err := f.svc.RequeueStale(context.Background(), f.clock.now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRequeueStaleSkipsConcurrentlyFinalizedEvents(t *testing.T) {
	f := newWebhookFixture(t)
	event := f.recorded(t, "evt-finalized")
	require.NoError(t, f.svc.MarkProcessing(context.Background(), event))

	// The sweep reads its stale snapshot before the consumer finishes.
	f.clock.now = f.clock.now.Add(10 * time.Minute)
	stale, err := f.events.FindStaleProcessing(context.Background(), f.clock.now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)

	require.NoError(t, f.svc.MarkCompleted(context.Background(), event))

	n, err := f.svc.RequeueStale(context.Background(), f.clock.now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetEventNotFound(t *testing.T) {
	f := newWebhookFixture(t)
	_, err := f.svc.GetEvent(context.Background(), uuid.New())
	assert.Equal(t, "EVENT_NOT_FOUND", apperror.Code(err))
}
