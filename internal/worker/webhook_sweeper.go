package worker

import (
	"context"
	"time"

	"cardflow/internal/core/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// WebhookSweeper requeues webhook events that a consumer claimed and then
// abandoned.
type WebhookSweeper struct {
	webhooks   ports.WebhookService
	clock      ports.Clock
	spec       string
	staleAfter time.Duration
	log        zerolog.Logger
	cron       *cron.Cron
}

func NewWebhookSweeper(webhooks ports.WebhookService, clock ports.Clock, spec string, staleAfter time.Duration, log zerolog.Logger) *WebhookSweeper {
	return &WebhookSweeper{
		webhooks:   webhooks,
		clock:      clock,
		spec:       spec,
		staleAfter: staleAfter,
		log:        log,
		cron:       cron.New(),
	}
}

func (s *WebhookSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("cron", s.spec).Dur("stale_after", s.staleAfter).Msg("webhook sweeper started")
	return nil
}

func (s *WebhookSweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("webhook sweeper stopped")
}

// RunOnce requeues every event claimed longer than staleAfter ago.
func (s *WebhookSweeper) RunOnce(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.staleAfter)
	n, err := s.webhooks.RequeueStale(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("stale sweep failed")
		return
	}
	if n > 0 {
		s.log.Warn().Int("requeued", n).Time("cutoff", cutoff).Msg("stale webhook events requeued")
	}
}

func (s *WebhookSweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s.RunOnce(ctx)
}
