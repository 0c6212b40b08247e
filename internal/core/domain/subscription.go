package domain

import (
	"time"

	"cardflow/pkg/apperror"

	"github.com/google/uuid"
)

// BillingCycle determines how nextBillingAt advances after a successful
// charge.
type BillingCycle string

const (
	CycleDaily   BillingCycle = "DAILY"
	CycleWeekly  BillingCycle = "WEEKLY"
	CycleMonthly BillingCycle = "MONTHLY"
	CycleYearly  BillingCycle = "YEARLY"
	CycleCustom  BillingCycle = "CUSTOM"
)

// defaultCustomIntervalDays applies when a CUSTOM cycle has no interval set.
const defaultCustomIntervalDays = 30

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused     SubscriptionStatus = "PAUSED"
	SubscriptionStatusDelinquent SubscriptionStatus = "DELINQUENT"
	SubscriptionStatusCancelled  SubscriptionStatus = "CANCELLED"
	SubscriptionStatusCompleted  SubscriptionStatus = "COMPLETED"
)

// Subscription is the aggregate root for recurring billing. Schedules and
// dunning entries reference it by id; there is no navigable object graph.
type Subscription struct {
	ID                 uuid.UUID          `json:"id"`
	CustomerID         uuid.UUID          `json:"customer_id"`
	PlanCode           string             `json:"plan_code"`
	BillingCycle       BillingCycle       `json:"billing_cycle"`
	IntervalDays       int                `json:"interval_days,omitempty"` // CUSTOM cycle only, 0 = default
	Money              Money              `json:"money"`
	PaymentMethodToken string             `json:"-"`
	Status             SubscriptionStatus `json:"status"`
	ClientReference    string             `json:"client_reference"`
	TrialEnd           *time.Time         `json:"trial_end,omitempty"`
	NextBillingAt      time.Time          `json:"next_billing_at"`
	DelinquentSince    *time.Time         `json:"delinquent_since,omitempty"`
	RetryCount         int                `json:"retry_count"`
	MaxRetryAttempts   int                `json:"max_retry_attempts"`
	Version            int64              `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewSubscription creates an ACTIVE subscription with the first billing due
// at firstBilling.
func NewSubscription(customerID uuid.UUID, planCode string, cycle BillingCycle, intervalDays int,
	money Money, paymentMethodToken, clientReference string, trialEnd *time.Time,
	firstBilling time.Time, maxRetryAttempts int, now time.Time) *Subscription {
	return &Subscription{
		ID:                 uuid.New(),
		CustomerID:         customerID,
		PlanCode:           planCode,
		BillingCycle:       cycle,
		IntervalDays:       intervalDays,
		Money:              money,
		PaymentMethodToken: paymentMethodToken,
		Status:             SubscriptionStatusActive,
		ClientReference:    clientReference,
		TrialEnd:           trialEnd,
		NextBillingAt:      firstBilling,
		MaxRetryAttempts:   maxRetryAttempts,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Pause suspends billing. Only ACTIVE subscriptions can be paused.
func (s *Subscription) Pause(now time.Time) error {
	if s.Status != SubscriptionStatusActive {
		return apperror.ErrInvalidState(string(s.Status))
	}
	s.Status = SubscriptionStatusPaused
	s.touch(now)
	return nil
}

// Resume reactivates a PAUSED subscription with a fresh billing anchor.
func (s *Subscription) Resume(nextBilling time.Time, now time.Time) error {
	if s.Status != SubscriptionStatusPaused {
		return apperror.ErrInvalidState(string(s.Status))
	}
	s.Status = SubscriptionStatusActive
	s.NextBillingAt = nextBilling
	s.touch(now)
	return nil
}

// Cancel terminates the subscription from any state.
func (s *Subscription) Cancel(now time.Time) {
	s.Status = SubscriptionStatusCancelled
	s.touch(now)
}

// MarkCompleted ends a subscription that ran its course.
func (s *Subscription) MarkCompleted(now time.Time) {
	s.Status = SubscriptionStatusCompleted
	s.touch(now)
}

// RecordSuccessfulCharge resets dunning state and advances the billing anchor
// by one cycle.
func (s *Subscription) RecordSuccessfulCharge(now time.Time) {
	s.Status = SubscriptionStatusActive
	s.RetryCount = 0
	s.DelinquentSince = nil
	s.NextBillingAt = s.NextBillingAfter(s.NextBillingAt)
	s.touch(now)
}

// RecordFailedCharge increments the retry counter, marks the subscription
// delinquent and points the billing anchor at the next retry attempt.
func (s *Subscription) RecordFailedCharge(nextAttempt time.Time, now time.Time) {
	s.RetryCount++
	if s.DelinquentSince == nil {
		since := now
		s.DelinquentSince = &since
	}
	s.Status = SubscriptionStatusDelinquent
	s.NextBillingAt = nextAttempt
	s.touch(now)
}

// HasExceededRetryAttempts reports whether the retry budget is spent.
func (s *Subscription) HasExceededRetryAttempts() bool {
	return s.RetryCount >= s.MaxRetryAttempts
}

// ShouldAutoCancel reports whether the subscription has been delinquent
// longer than the grace window.
func (s *Subscription) ShouldAutoCancel(now time.Time, autoCancelDays int) bool {
	return s.DelinquentSince != nil && s.DelinquentSince.AddDate(0, 0, autoCancelDays).Before(now)
}

// NextBillingAfter returns the reference time advanced by one billing cycle.
func (s *Subscription) NextBillingAfter(reference time.Time) time.Time {
	switch s.BillingCycle {
	case CycleDaily:
		return reference.AddDate(0, 0, 1)
	case CycleWeekly:
		return reference.AddDate(0, 0, 7)
	case CycleMonthly:
		return reference.AddDate(0, 1, 0)
	case CycleYearly:
		return reference.AddDate(1, 0, 0)
	default:
		days := s.IntervalDays
		if days <= 0 {
			days = defaultCustomIntervalDays
		}
		return reference.AddDate(0, 0, days)
	}
}

// UpdatePlan changes plan code and price. Empty/zero fields keep the current
// value.
func (s *Subscription) UpdatePlan(planCode string, money *Money, now time.Time) {
	if planCode != "" {
		s.PlanCode = planCode
	}
	if money != nil {
		s.Money = *money
	}
	s.touch(now)
}

// UpdatePaymentMethod swaps the stored gateway token.
func (s *Subscription) UpdatePaymentMethod(token string, now time.Time) error {
	if token == "" {
		return apperror.Validation("payment method token cannot be blank")
	}
	s.PaymentMethodToken = token
	s.touch(now)
	return nil
}

// SetMaxRetryAttempts adjusts the retry budget.
func (s *Subscription) SetMaxRetryAttempts(attempts int, now time.Time) error {
	if attempts <= 0 {
		return apperror.Validation("max retry attempts must be positive")
	}
	s.MaxRetryAttempts = attempts
	s.touch(now)
	return nil
}

// SetIntervalDays adjusts the CUSTOM cycle interval.
func (s *Subscription) SetIntervalDays(days int, now time.Time) {
	s.IntervalDays = days
	s.touch(now)
}

func (s *Subscription) touch(now time.Time) {
	s.UpdatedAt = now
}
