package service

import (
	"context"
	"sync"
	"time"

	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultMaxRetryAttempts applies when a create command leaves the retry
// budget unset.
const defaultMaxRetryAttempts = 3

type subscriptionService struct {
	subscriptions ports.SubscriptionRepository
	schedules     ports.ScheduleRepository
	dunning       ports.DunningRepository
	audits        ports.AuditRepository
	gateway       ports.PaymentGateway
	clock         ports.Clock
	log           zerolog.Logger

	autoCancelDays int
	workers        int
}

// NewSubscriptionService wires recurring billing management and the due
// charge cycle. autoCancelDays bounds how long a subscription may stay
// delinquent; workers bounds billing concurrency inside
// ProcessDueSubscriptions.
func NewSubscriptionService(
	subscriptions ports.SubscriptionRepository,
	schedules ports.ScheduleRepository,
	dunning ports.DunningRepository,
	audits ports.AuditRepository,
	gateway ports.PaymentGateway,
	clock ports.Clock,
	autoCancelDays int,
	workers int,
	log zerolog.Logger,
) ports.SubscriptionService {
	if workers <= 0 {
		workers = 1
	}
	return &subscriptionService{
		subscriptions:  subscriptions,
		schedules:      schedules,
		dunning:        dunning,
		audits:         audits,
		gateway:        gateway,
		clock:          clock,
		autoCancelDays: autoCancelDays,
		workers:        workers,
		log:            log,
	}
}

func (s *subscriptionService) Create(ctx context.Context, cmd ports.CreateSubscriptionCommand) (*domain.Subscription, error) {
	if cmd.Amount.IsZero() {
		return nil, apperror.ErrInvalidAmount("subscription amount must be greater than zero")
	}
	if cmd.PlanCode == "" {
		return nil, apperror.Validation("plan code is required")
	}
	if cmd.PaymentMethodToken == "" {
		return nil, apperror.Validation("payment method token is required")
	}
	if cmd.ClientReference != "" {
		existing, err := s.subscriptions.FindByClientReference(ctx, cmd.ClientReference)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, apperror.ErrDuplicateSubscription(cmd.ClientReference)
		}
	}

	now := s.clock.Now()
	maxRetries := cmd.MaxRetryAttempts
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetryAttempts
	}
	firstBilling := cmd.FirstBillingAt
	if firstBilling.IsZero() {
		if cmd.TrialEnd != nil {
			firstBilling = *cmd.TrialEnd
		} else {
			firstBilling = now
		}
	}

	sub := domain.NewSubscription(cmd.CustomerID, cmd.PlanCode, cmd.Cycle, cmd.IntervalDays,
		cmd.Amount, cmd.PaymentMethodToken, cmd.ClientReference, cmd.TrialEnd,
		firstBilling, maxRetries, now)
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, err
	}

	schedule := domain.NewPendingSchedule(sub.ID, 1, sub.NextBillingAt, now)
	if err := s.schedules.Save(ctx, schedule); err != nil {
		return nil, err
	}

	s.auditSubscription(ctx, domain.AuditActionSubscriptionCreate, sub, cmd.CorrelationID)
	s.log.Info().Str("subscription_id", sub.ID.String()).Str("plan_code", sub.PlanCode).
		Time("next_billing_at", sub.NextBillingAt).Msg("subscription created")
	return sub, nil
}

func (s *subscriptionService) Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return s.findSubscription(ctx, id)
}

func (s *subscriptionService) List(ctx context.Context) ([]domain.Subscription, error) {
	return s.subscriptions.List(ctx)
}

func (s *subscriptionService) Pause(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.findSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sub.Pause(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, err
	}
	s.log.Info().Str("subscription_id", id.String()).Msg("subscription paused")
	return sub, nil
}

func (s *subscriptionService) Resume(ctx context.Context, id uuid.UUID, nextBillingAt time.Time) (*domain.Subscription, error) {
	sub, err := s.findSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if nextBillingAt.IsZero() {
		nextBillingAt = sub.NextBillingAfter(now)
	}
	if err := sub.Resume(nextBillingAt, now); err != nil {
		return nil, err
	}
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, err
	}
	s.log.Info().Str("subscription_id", id.String()).Time("next_billing_at", nextBillingAt).
		Msg("subscription resumed")
	return sub, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.findSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	sub.Cancel(now)
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, err
	}
	s.skipPendingSchedules(ctx, sub.ID, now)
	s.auditSubscription(ctx, domain.AuditActionSubscriptionCancel, sub, "")
	s.log.Info().Str("subscription_id", id.String()).Msg("subscription cancelled")
	return sub, nil
}

func (s *subscriptionService) Update(ctx context.Context, cmd ports.UpdateSubscriptionCommand) (*domain.Subscription, error) {
	sub, err := s.findSubscription(ctx, cmd.SubscriptionID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	if cmd.PlanCode != nil || cmd.Amount != nil {
		planCode := ""
		if cmd.PlanCode != nil {
			planCode = *cmd.PlanCode
		}
		sub.UpdatePlan(planCode, cmd.Amount, now)
	}
	if cmd.PaymentMethodToken != nil {
		if err := sub.UpdatePaymentMethod(*cmd.PaymentMethodToken, now); err != nil {
			return nil, err
		}
	}
	if cmd.MaxRetryAttempts != nil {
		if err := sub.SetMaxRetryAttempts(*cmd.MaxRetryAttempts, now); err != nil {
			return nil, err
		}
	}
	if cmd.IntervalDays != nil {
		sub.SetIntervalDays(*cmd.IntervalDays, now)
	}
	if cmd.NextBillingAt != nil {
		sub.NextBillingAt = *cmd.NextBillingAt
		sub.UpdatedAt = now
	}

	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) Schedules(ctx context.Context, id uuid.UUID) ([]domain.SubscriptionSchedule, error) {
	if _, err := s.findSubscription(ctx, id); err != nil {
		return nil, err
	}
	return s.schedules.ListBySubscription(ctx, id)
}

func (s *subscriptionService) DunningHistory(ctx context.Context, id uuid.UUID) ([]domain.DunningEntry, error) {
	if _, err := s.findSubscription(ctx, id); err != nil {
		return nil, err
	}
	return s.dunning.ListBySubscription(ctx, id)
}

// ProcessDueSubscriptions charges every ACTIVE or DELINQUENT subscription
// whose billing anchor is at or before threshold. Charges run on a bounded
// worker pool; a lost version race on a subscription means another node
// already billed it, so the subscription is skipped silently.
func (s *subscriptionService) ProcessDueSubscriptions(ctx context.Context, threshold time.Time) (int, error) {
	due, err := s.subscriptions.FindDue(ctx,
		[]domain.SubscriptionStatus{domain.SubscriptionStatusActive, domain.SubscriptionStatusDelinquent},
		threshold)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	jobs := make(chan domain.Subscription)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				s.processDue(ctx, &sub)
			}
		}()
	}
	for _, sub := range due {
		jobs <- sub
	}
	close(jobs)
	wg.Wait()

	return len(due), nil
}

func (s *subscriptionService) processDue(ctx context.Context, sub *domain.Subscription) {
	now := s.clock.Now()
	log := s.log.With().Str("subscription_id", sub.ID.String()).Logger()

	schedule, err := s.currentSchedule(ctx, sub, now)
	if err != nil {
		log.Error().Err(err).Msg("could not resolve billing attempt")
		return
	}

	result, chargeErr := s.gateway.Purchase(ctx, sub.Money, sub.PaymentMethodToken, sub.ID.String())
	now = s.clock.Now()

	if chargeErr == nil {
		if err := schedule.MarkSuccess(now); err != nil {
			log.Error().Err(err).Msg("billing attempt already finalized")
			return
		}
		sub.RecordSuccessfulCharge(now)
		if err := s.subscriptions.Save(ctx, sub); err != nil {
			if apperror.HasCode(err, apperror.CodeVersionConflict) {
				log.Debug().Msg("subscription billed concurrently, skipping")
				return
			}
			log.Error().Err(err).Msg("failed to persist billed subscription")
			return
		}
		if err := s.schedules.Save(ctx, schedule); err != nil {
			log.Error().Err(err).Msg("failed to persist billing attempt")
		}
		next := domain.NewPendingSchedule(sub.ID, 1, sub.NextBillingAt, now)
		if err := s.schedules.Save(ctx, next); err != nil {
			log.Error().Err(err).Msg("failed to create next billing attempt")
		}
		log.Info().Str("gateway_transaction_id", result.TransactionID).
			Time("next_billing_at", sub.NextBillingAt).Msg("recurring charge succeeded")
		return
	}

	s.handleFailedCharge(ctx, sub, schedule, chargeErr, now, log)
}

func (s *subscriptionService) handleFailedCharge(ctx context.Context, sub *domain.Subscription,
	schedule *domain.SubscriptionSchedule, chargeErr error, now time.Time, log zerolog.Logger) {

	if err := schedule.MarkFailure(chargeErr.Error(), now); err != nil {
		log.Error().Err(err).Msg("billing attempt already finalized")
		return
	}

	entry := domain.RecordDunning(sub.ID, schedule.ScheduledAt, "FAILED",
		apperror.Code(chargeErr), chargeErr.Error(), now)
	if err := s.dunning.Create(ctx, &entry); err != nil {
		log.Warn().Err(err).Msg("dunning write failed")
	}

	nextAttempt := s.nextRetryAt(sub, now)
	sub.RecordFailedCharge(nextAttempt, now)

	cancelled := false
	switch {
	case sub.HasExceededRetryAttempts():
		sub.Cancel(now)
		cancelled = true
		log.Warn().Int("retry_count", sub.RetryCount).Msg("retry budget spent, cancelling subscription")
	case sub.ShouldAutoCancel(now, s.autoCancelDays):
		sub.Cancel(now)
		cancelled = true
		log.Warn().Msg("delinquency grace window elapsed, cancelling subscription")
	}

	if err := s.subscriptions.Save(ctx, sub); err != nil {
		if apperror.HasCode(err, apperror.CodeVersionConflict) {
			log.Debug().Msg("subscription updated concurrently, skipping")
			return
		}
		log.Error().Err(err).Msg("failed to persist delinquent subscription")
		return
	}
	if err := s.schedules.Save(ctx, schedule); err != nil {
		log.Error().Err(err).Msg("failed to persist billing attempt")
	}

	if cancelled {
		s.auditSubscription(ctx, domain.AuditActionSubscriptionCancel, sub, "")
		return
	}

	retry := domain.NewPendingSchedule(sub.ID, sub.RetryCount+1, nextAttempt, now)
	if err := s.schedules.Save(ctx, retry); err != nil {
		log.Error().Err(err).Msg("failed to create retry attempt")
	}
	log.Info().Int("retry_count", sub.RetryCount).Time("next_attempt", nextAttempt).
		Msg("recurring charge failed, retry scheduled")
}

// nextRetryAt implements the dunning backoff ladder. The first three retries
// back off one, three and seven days; beyond that the anchor advances by a
// whole billing cycle.
func (s *subscriptionService) nextRetryAt(sub *domain.Subscription, now time.Time) time.Time {
	switch sub.RetryCount {
	case 0:
		return now.AddDate(0, 0, 1)
	case 1:
		return now.AddDate(0, 0, 3)
	case 2:
		return now.AddDate(0, 0, 7)
	default:
		return sub.NextBillingAfter(now)
	}
}

// currentSchedule returns the open billing attempt for the subscription,
// creating one when the trail has none (first charge after a resume, or a
// lost write).
func (s *subscriptionService) currentSchedule(ctx context.Context, sub *domain.Subscription, now time.Time) (*domain.SubscriptionSchedule, error) {
	pending, err := s.schedules.FindPendingBySubscription(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		return &pending[0], nil
	}
	schedule := domain.NewPendingSchedule(sub.ID, sub.RetryCount+1, sub.NextBillingAt, now)
	if err := s.schedules.Save(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// skipPendingSchedules finalizes open attempts so a cancelled subscription
// never bills again.
func (s *subscriptionService) skipPendingSchedules(ctx context.Context, subscriptionID uuid.UUID, now time.Time) {
	pending, err := s.schedules.FindPendingBySubscription(ctx, subscriptionID)
	if err != nil {
		s.log.Warn().Err(err).Str("subscription_id", subscriptionID.String()).
			Msg("could not list pending billing attempts")
		return
	}
	for i := range pending {
		if err := pending[i].MarkSkipped(now); err != nil {
			continue
		}
		if err := s.schedules.Save(ctx, &pending[i]); err != nil {
			s.log.Warn().Err(err).Str("schedule_id", pending[i].ID.String()).
				Msg("could not skip billing attempt")
		}
	}
}

func (s *subscriptionService) findSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperror.ErrSubscriptionNotFound()
	}
	return sub, nil
}

func (s *subscriptionService) auditSubscription(ctx context.Context, action domain.AuditAction, sub *domain.Subscription, correlationID string) {
	entry := &domain.AuditEntry{
		ID:            uuid.New(),
		Action:        action,
		ResourceType:  "subscription",
		ResourceID:    sub.ID.String(),
		CorrelationID: correlationID,
		Detail:        sub.PlanCode,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("subscription_id", sub.ID.String()).Msg("audit write failed")
	}
}
