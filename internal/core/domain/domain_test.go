package domain

import (
	"testing"
	"time"

	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func mustMoney(t *testing.T, amount, currency string) Money {
	t.Helper()
	m, err := NewMoneyFromString(amount, currency)
	require.NoError(t, err)
	return m
}

// ==================== Money ====================

func TestNewMoney_RoundsHalfUpAndUppercases(t *testing.T) {
	m, err := NewMoneyFromString("10.004", "usd")
	require.NoError(t, err)
	assert.Equal(t, "10.00 USD", m.String())

	m, err = NewMoneyFromString("10.005", "usd")
	require.NoError(t, err)
	assert.Equal(t, "10.01 USD", m.String())
}

func TestNewMoney_RejectsNegative(t *testing.T) {
	_, err := NewMoney(decimal.NewFromInt(-1), "USD")
	assert.Error(t, err)
}

func TestNewMoney_RejectsBadCurrency(t *testing.T) {
	for _, currency := range []string{"", "US", "USDD", "U1D"} {
		_, err := NewMoneyFromString("1.00", currency)
		assert.Error(t, err, "currency %q should be rejected", currency)
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := mustMoney(t, "10.50", "USD")
	b := mustMoney(t, "2.25", "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "12.75 USD", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "8.25 USD", diff.String())

	_, err = b.Sub(a)
	assert.Error(t, err, "subtraction below zero must fail")
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	usd := mustMoney(t, "1.00", "USD")
	eur := mustMoney(t, "1.00", "EUR")

	_, err := usd.Add(eur)
	assert.Error(t, err)
	_, err = usd.Sub(eur)
	assert.Error(t, err)
	_, err = usd.GreaterThan(eur)
	assert.Error(t, err)
}

// ==================== PaymentOrder state machine ====================

func newTestOrder(t *testing.T) *PaymentOrder {
	return NewPaymentOrder(uuid.New(), mustMoney(t, "50.00", "USD"), "corr-1", "req-1", "idem-1", now)
}

func TestPaymentOrder_HappyPathAuthorizeCaptureSettleRefund(t *testing.T) {
	o := newTestOrder(t)
	assert.Equal(t, OrderStatusCreated, o.Status)

	require.NoError(t, o.MarkAuthorized(now))
	require.NoError(t, o.MarkCaptured(now))
	require.NoError(t, o.MarkSettled(now))
	require.NoError(t, o.MarkRefunded(now))
	// REFUNDED re-enters itself for repeat partial refunds.
	require.NoError(t, o.MarkRefunded(now))
}

func TestPaymentOrder_PurchaseSkipsAuthorization(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkCaptured(now), "CREATED -> CAPTURED is allowed for purchase")
}

func TestPaymentOrder_InvalidTransitions(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkCaptured(now))

	err := o.MarkCaptured(now)
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", apperror.Code(err))

	err = o.MarkCancelled(now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAPTURED", "current status must be embedded for diagnostics")

	err = o.MarkAuthorized(now)
	assert.Error(t, err)
}

func TestPaymentOrder_MarkFailedFromAnyState(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.MarkAuthorized(now))
	o.MarkFailed(now)
	assert.Equal(t, OrderStatusFailed, o.Status)
}

func TestPaymentOrder_TransactionTotals(t *testing.T) {
	o := newTestOrder(t)
	o.AddTransaction(RecordTransaction(o.ID, TransactionTypePurchase, mustMoney(t, "50.00", "USD"), "gw-1", "SETTLED", now, "1", "ok"))
	o.AddTransaction(RecordTransaction(o.ID, TransactionTypeRefund, mustMoney(t, "20.00", "USD"), "gw-2", "REFUNDED", now, "1", "ok"))
	o.AddTransaction(RecordTransaction(o.ID, TransactionTypeRefund, mustMoney(t, "10.00", "USD"), "gw-3", "REFUNDED", now, "1", "ok"))

	assert.True(t, o.TotalCapturedAmount().Equal(decimal.RequireFromString("50.00")))
	assert.True(t, o.TotalRefundedAmount().Equal(decimal.RequireFromString("30.00")))

	refund := o.FirstTransactionOfType(TransactionTypeCapture, TransactionTypePurchase)
	require.NotNil(t, refund)
	assert.Equal(t, TransactionTypePurchase, refund.Type)
	assert.Nil(t, o.FirstTransactionOfType(TransactionTypeAuthorization))
}

// ==================== Subscription ====================

func newTestSubscription(t *testing.T, cycle BillingCycle, intervalDays int) *Subscription {
	return NewSubscription(uuid.New(), "plan-basic", cycle, intervalDays,
		mustMoney(t, "9.99", "USD"), "tok-1", "client-ref-1", nil, now, 3, now)
}

func TestSubscription_PauseResume(t *testing.T) {
	s := newTestSubscription(t, CycleMonthly, 0)

	require.NoError(t, s.Pause(now))
	assert.Equal(t, SubscriptionStatusPaused, s.Status)

	err := s.Pause(now)
	assert.Equal(t, "INVALID_STATE", apperror.Code(err))

	next := now.AddDate(0, 0, 10)
	require.NoError(t, s.Resume(next, now))
	assert.Equal(t, SubscriptionStatusActive, s.Status)
	assert.Equal(t, next, s.NextBillingAt)

	err = s.Resume(next, now)
	assert.Equal(t, "INVALID_STATE", apperror.Code(err))
}

func TestSubscription_NextBillingAfter(t *testing.T) {
	ref := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		cycle        BillingCycle
		intervalDays int
		expected     time.Time
	}{
		{CycleDaily, 0, ref.AddDate(0, 0, 1)},
		{CycleWeekly, 0, ref.AddDate(0, 0, 7)},
		{CycleMonthly, 0, ref.AddDate(0, 1, 0)},
		{CycleYearly, 0, ref.AddDate(1, 0, 0)},
		{CycleCustom, 10, ref.AddDate(0, 0, 10)},
		{CycleCustom, 0, ref.AddDate(0, 0, 30)}, // default interval
	}
	for _, tt := range tests {
		s := newTestSubscription(t, tt.cycle, tt.intervalDays)
		assert.Equal(t, tt.expected, s.NextBillingAfter(ref), "cycle %s", tt.cycle)
	}
}

func TestSubscription_RecordSuccessfulChargeResetsDunning(t *testing.T) {
	s := newTestSubscription(t, CycleMonthly, 0)
	s.RecordFailedCharge(now.AddDate(0, 0, 1), now)
	require.Equal(t, SubscriptionStatusDelinquent, s.Status)
	require.Equal(t, 1, s.RetryCount)
	require.NotNil(t, s.DelinquentSince)

	anchor := s.NextBillingAt
	s.RecordSuccessfulCharge(now)
	assert.Equal(t, SubscriptionStatusActive, s.Status)
	assert.Equal(t, 0, s.RetryCount)
	assert.Nil(t, s.DelinquentSince)
	assert.Equal(t, anchor.AddDate(0, 1, 0), s.NextBillingAt)
}

func TestSubscription_DelinquentSinceSetOnce(t *testing.T) {
	s := newTestSubscription(t, CycleDaily, 0)
	s.RecordFailedCharge(now.AddDate(0, 0, 1), now)
	first := *s.DelinquentSince

	later := now.AddDate(0, 0, 2)
	s.RecordFailedCharge(later.AddDate(0, 0, 3), later)
	assert.Equal(t, first, *s.DelinquentSince, "delinquentSince is anchored at the first failure")
	assert.Equal(t, 2, s.RetryCount)
}

func TestSubscription_RetryBudgetAndAutoCancel(t *testing.T) {
	s := newTestSubscription(t, CycleMonthly, 0)
	assert.False(t, s.HasExceededRetryAttempts())
	s.RetryCount = 3
	assert.True(t, s.HasExceededRetryAttempts())

	assert.False(t, s.ShouldAutoCancel(now, 30), "never delinquent")
	since := now.AddDate(0, 0, -31)
	s.DelinquentSince = &since
	assert.True(t, s.ShouldAutoCancel(now, 30))
	assert.False(t, s.ShouldAutoCancel(now, 60))
}

func TestSubscription_Update(t *testing.T) {
	s := newTestSubscription(t, CycleCustom, 15)

	newPrice := mustMoney(t, "19.99", "USD")
	s.UpdatePlan("plan-pro", &newPrice, now)
	assert.Equal(t, "plan-pro", s.PlanCode)
	assert.Equal(t, "19.99 USD", s.Money.String())

	require.NoError(t, s.UpdatePaymentMethod("tok-2", now))
	assert.Error(t, s.UpdatePaymentMethod("", now))

	require.NoError(t, s.SetMaxRetryAttempts(5, now))
	assert.Error(t, s.SetMaxRetryAttempts(0, now))
}

// ==================== SubscriptionSchedule ====================

func TestSchedule_ImmutableOnceFinalized(t *testing.T) {
	sch := NewPendingSchedule(uuid.New(), 0, now, now)
	require.NoError(t, sch.MarkFailure("card declined", now))
	assert.Equal(t, ScheduleStatusFailed, sch.Status)
	assert.Equal(t, "card declined", sch.FailureReason)

	assert.Error(t, sch.MarkSuccess(now))
	assert.Error(t, sch.MarkSkipped(now))
	assert.Equal(t, ScheduleStatusFailed, sch.Status)
}

// ==================== WebhookEvent ====================

func TestWebhookEvent_Lifecycle(t *testing.T) {
	e := NewWebhookEvent("evt-1", "net.authorize.payment.authcapture.created", `{"id":1}`, "sig", now)
	assert.Equal(t, WebhookStatusPending, e.ProcessedStatus)
	assert.Equal(t, DedupeHash(`{"id":1}`), e.DedupeHash)

	require.NoError(t, e.MarkProcessing(now))
	assert.Error(t, e.MarkProcessing(now), "double claim must fail")

	require.NoError(t, e.MarkCompleted(now))
	assert.Equal(t, WebhookStatusCompleted, e.ProcessedStatus)
}

func TestWebhookEvent_FailureKeepsReason(t *testing.T) {
	e := NewWebhookEvent("evt-2", "type", "payload", "sig", now)
	require.NoError(t, e.MarkProcessing(now))
	require.NoError(t, e.MarkFailed("handler panic", now))
	assert.Equal(t, WebhookStatusFailed, e.ProcessedStatus)
	assert.Equal(t, "handler panic", e.FailureReason)

	assert.Error(t, e.Requeue(now), "only PROCESSING events can be requeued")
}

func TestWebhookEvent_Requeue(t *testing.T) {
	e := NewWebhookEvent("evt-3", "type", "payload", "sig", now)
	require.NoError(t, e.MarkProcessing(now))
	require.NoError(t, e.Requeue(now))
	assert.Equal(t, WebhookStatusPending, e.ProcessedStatus)
	assert.Nil(t, e.ProcessedAt)
}

// ==================== IdempotencyRecord ====================

func TestIdempotencyRecord_HashIsStable(t *testing.T) {
	r1 := NewIdempotencyRecord("key-1", "payload", []byte(`{"ok":true}`), 201, now)
	r2 := NewIdempotencyRecord("key-1", "payload", []byte(`{"ok":true}`), 201, now)
	assert.Equal(t, r1.RequestHash, r2.RequestHash)
	assert.NotEqual(t, r1.RequestHash, NewIdempotencyRecord("key-1", "other", nil, 201, now).RequestHash)
}
