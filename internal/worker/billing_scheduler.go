// Package worker holds the background processes: the recurring billing
// scheduler, the webhook consumer and the stale-event sweeper.
package worker

import (
	"context"
	"time"

	"cardflow/internal/core/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// BillingScheduler fires the due-subscription charge cycle on a cron
// schedule.
type BillingScheduler struct {
	subscriptions ports.SubscriptionService
	clock         ports.Clock
	spec          string
	timeout       time.Duration
	log           zerolog.Logger
	cron          *cron.Cron
}

func NewBillingScheduler(subscriptions ports.SubscriptionService, clock ports.Clock, spec string, log zerolog.Logger) *BillingScheduler {
	return &BillingScheduler{
		subscriptions: subscriptions,
		clock:         clock,
		spec:          spec,
		timeout:       4 * time.Minute,
		log:           log,
		cron:          cron.New(),
	}
}

// Start registers the cron entry and launches the scheduler.
func (s *BillingScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("cron", s.spec).Msg("billing scheduler started")
	return nil
}

// Stop halts the cron and waits for a running pass to finish.
func (s *BillingScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("billing scheduler stopped")
}

// RunOnce drives one charge pass; the cron entry calls it on schedule.
func (s *BillingScheduler) RunOnce(ctx context.Context) {
	threshold := s.clock.Now()
	n, err := s.subscriptions.ProcessDueSubscriptions(ctx, threshold)
	if err != nil {
		s.log.Error().Err(err).Msg("billing pass failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("processed", n).Time("threshold", threshold).Msg("billing pass finished")
	}
}

func (s *BillingScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.RunOnce(ctx)
}
