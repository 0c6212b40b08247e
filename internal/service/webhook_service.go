package service

import (
	"context"
	"time"

	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type webhookService struct {
	events    ports.WebhookEventRepository
	publisher ports.EventPublisher
	clock     ports.Clock
	log       zerolog.Logger
}

// NewWebhookService wires webhook ingestion, dedup and the processing state
// machine.
func NewWebhookService(
	events ports.WebhookEventRepository,
	publisher ports.EventPublisher,
	clock ports.Clock,
	log zerolog.Logger,
) ports.WebhookService {
	return &webhookService{events: events, publisher: publisher, clock: clock, log: log}
}

// RecordEvent stores a new event in PENDING and enqueues it. A redelivered
// event ID returns the stored row with duplicate set; no error, no second
// enqueue.
func (s *webhookService) RecordEvent(ctx context.Context, cmd ports.RecordEventCommand) (*domain.WebhookEvent, bool, error) {
	if cmd.EventID == "" {
		return nil, false, apperror.Validation("event id is required")
	}

	existing, err := s.events.FindByEventID(ctx, cmd.EventID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.log.Info().Str("event_id", cmd.EventID).Msg("duplicate webhook delivery ignored")
		return existing, true, nil
	}

	event := domain.NewWebhookEvent(cmd.EventID, cmd.EventType, string(cmd.Payload), cmd.Signature, s.clock.Now())
	if err := s.events.Save(ctx, event); err != nil {
		// Two deliveries raced on the unique event id. The first insert won;
		// hand back its row.
		if apperror.HasCode(err, apperror.CodeDuplicateRequest) {
			winner, findErr := s.events.FindByEventID(ctx, cmd.EventID)
			if findErr == nil && winner != nil {
				return winner, true, nil
			}
		}
		return nil, false, err
	}

	if err := s.publisher.Publish(ctx, event.ID); err != nil {
		// The stale sweep republishes PENDING work, so a failed enqueue is
		// not fatal to the stored event.
		s.log.Warn().Err(err).Str("event_id", event.EventID).Msg("event enqueue failed")
	}

	s.log.Info().Str("event_id", event.EventID).Str("event_type", event.EventType).
		Msg("webhook event recorded")
	return event, false, nil
}

func (s *webhookService) GetEvent(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperror.ErrEventNotFound()
	}
	return event, nil
}

// MarkProcessing claims the event for the calling consumer. The version
// compare-and-swap in Save guarantees a single winner when consumers race.
func (s *webhookService) MarkProcessing(ctx context.Context, event *domain.WebhookEvent) error {
	if err := event.MarkProcessing(s.clock.Now()); err != nil {
		return err
	}
	return s.events.Save(ctx, event)
}

func (s *webhookService) MarkCompleted(ctx context.Context, event *domain.WebhookEvent) error {
	if err := event.MarkCompleted(s.clock.Now()); err != nil {
		return err
	}
	return s.events.Save(ctx, event)
}

func (s *webhookService) MarkFailed(ctx context.Context, event *domain.WebhookEvent, reason string) error {
	if err := event.MarkFailed(reason, s.clock.Now()); err != nil {
		return err
	}
	return s.events.Save(ctx, event)
}

func (s *webhookService) FetchNextPending(ctx context.Context) (*domain.WebhookEvent, error) {
	return s.events.FindFirstPending(ctx)
}

// RequeueStale returns PROCESSING events older than before to PENDING and
// republishes them. Each stale event is requeued at most once per sweep: the
// version compare-and-swap loses on any row a consumer touched meanwhile.
func (s *webhookService) RequeueStale(ctx context.Context, before time.Time) (int, error) {
	stale, err := s.events.FindStaleProcessing(ctx, before)
	if err != nil {
		return 0, err
	}

	requeued := 0
	now := s.clock.Now()
	for i := range stale {
		event := &stale[i]
		if err := event.Requeue(now); err != nil {
			continue
		}
		if err := s.events.Save(ctx, event); err != nil {
			if apperror.HasCode(err, apperror.CodeVersionConflict) {
				continue
			}
			return requeued, err
		}
		if err := s.publisher.Publish(ctx, event.ID); err != nil {
			s.log.Warn().Err(err).Str("event_id", event.EventID).Msg("requeue publish failed")
		}
		requeued++
		s.log.Info().Str("event_id", event.EventID).Msg("stale webhook event requeued")
	}
	return requeued, nil
}
