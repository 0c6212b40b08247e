package worker

import (
	"context"
	"errors"

	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventHandler applies the business effect of one webhook event. Returning an
// error marks the event FAILED with the error text as reason.
type EventHandler func(ctx context.Context, event *domain.WebhookEvent) error

// WebhookConsumer drains the event queue and drives each event through the
// processing state machine.
type WebhookConsumer struct {
	webhooks ports.WebhookService
	queue    ports.EventConsumer
	handler  EventHandler
	log      zerolog.Logger
}

func NewWebhookConsumer(webhooks ports.WebhookService, queue ports.EventConsumer, handler EventHandler, log zerolog.Logger) *WebhookConsumer {
	return &WebhookConsumer{webhooks: webhooks, queue: queue, handler: handler, log: log}
}

// Run consumes until ctx is cancelled.
func (c *WebhookConsumer) Run(ctx context.Context) {
	c.log.Info().Msg("webhook consumer started")
	for {
		eventID, err := c.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.log.Info().Msg("webhook consumer stopped")
				return
			}
			c.log.Error().Err(err).Msg("queue consume failed")
			continue
		}
		c.processOne(ctx, eventID)
	}
}

func (c *WebhookConsumer) processOne(ctx context.Context, eventID uuid.UUID) {
	event, err := c.webhooks.GetEvent(ctx, eventID)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeEventNotFound) {
			c.log.Warn().Str("event_id", eventID.String()).Msg("queued event no longer exists")
		} else {
			c.log.Error().Err(err).Str("event_id", eventID.String()).Msg("event lookup failed")
		}
		return
	}
	log := c.log.With().Str("event_id", event.EventID).Logger()

	if err := c.webhooks.MarkProcessing(ctx, event); err != nil {
		// Another consumer won the claim, or the sweep already requeued it.
		if apperror.HasCode(err, apperror.CodeVersionConflict) || apperror.HasCode(err, apperror.CodeInvalidState) {
			log.Debug().Msg("event claimed elsewhere, skipping")
			return
		}
		log.Error().Err(err).Msg("could not claim event")
		return
	}

	if err := c.handler(ctx, event); err != nil {
		log.Warn().Err(err).Msg("event handling failed")
		if err := c.webhooks.MarkFailed(ctx, event, err.Error()); err != nil {
			log.Error().Err(err).Msg("could not mark event failed")
		}
		return
	}
	if err := c.webhooks.MarkCompleted(ctx, event); err != nil {
		log.Error().Err(err).Msg("could not mark event completed")
		return
	}
	log.Info().Str("event_type", event.EventType).Msg("webhook event processed")
}
