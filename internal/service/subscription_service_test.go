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

type subscriptionFixture struct {
	subscriptions *memory.SubscriptionRepository
	schedules     *memory.ScheduleRepository
	dunning       *memory.DunningRepository
	audits        *memory.AuditRepository
	gateway       *mocks.MockPaymentGateway
	clock         *mutableClock
	svc           ports.SubscriptionService
}

type mutableClock struct{ now time.Time }

func (c *mutableClock) Now() time.Time { return c.now }

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &subscriptionFixture{
		subscriptions: memory.NewSubscriptionRepository(),
		schedules:     memory.NewScheduleRepository(),
		dunning:       memory.NewDunningRepository(),
		audits:        memory.NewAuditRepository(),
		gateway:       mocks.NewMockPaymentGateway(ctrl),
		clock:         &mutableClock{now: testTime},
	}
	f.svc = NewSubscriptionService(f.subscriptions, f.schedules, f.dunning, f.audits,
		f.gateway, f.clock, 30, 2, zerolog.Nop())
	return f
}

func (f *subscriptionFixture) create(t *testing.T, cmd ports.CreateSubscriptionCommand) *domain.Subscription {
	t.Helper()
	if cmd.PlanCode == "" {
		cmd.PlanCode = "plan-basic"
	}
	if cmd.PaymentMethodToken == "" {
		cmd.PaymentMethodToken = "tok-123"
	}
	if cmd.Amount.IsZero() {
		cmd.Amount = mustMoney(t, "9.99", "USD")
	}
	if cmd.Cycle == "" {
		cmd.Cycle = domain.CycleMonthly
	}
	sub, err := f.svc.Create(context.Background(), cmd)
	require.NoError(t, err)
	return sub
}

func TestCreateSubscription(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{
		CustomerID:      uuid.New(),
		ClientReference: "ref-1",
	})

	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, testTime, sub.NextBillingAt)
	assert.Equal(t, defaultMaxRetryAttempts, sub.MaxRetryAttempts)

	pending, err := f.schedules.FindPendingBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].AttemptNumber)

	entries := f.audits.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionSubscriptionCreate, entries[0].Action)
}

func TestCreateSubscriptionTrialDefersFirstBilling(t *testing.T) {
	f := newSubscriptionFixture(t)
	trialEnd := testTime.AddDate(0, 0, 14)
	sub := f.create(t, ports.CreateSubscriptionCommand{
		CustomerID: uuid.New(),
		TrialEnd:   &trialEnd,
	})
	assert.Equal(t, trialEnd, sub.NextBillingAt)
}

func TestCreateSubscriptionDuplicateReference(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New(), ClientReference: "ref-dup"})

	_, err := f.svc.Create(context.Background(), ports.CreateSubscriptionCommand{
		CustomerID:         uuid.New(),
		PlanCode:           "plan-basic",
		PaymentMethodToken: "tok-456",
		Amount:             mustMoney(t, "9.99", "USD"),
		Cycle:              domain.CycleMonthly,
		ClientReference:    "ref-dup",
	})
	assert.Equal(t, "DUPLICATE_SUBSCRIPTION", apperror.Code(err))
}

func TestPauseAndResume(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New()})

	paused, err := f.svc.Pause(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPaused, paused.Status)

	// Pausing twice is an invalid transition.
	_, err = f.svc.Pause(context.Background(), sub.ID)
	assert.Equal(t, "INVALID_STATE", apperror.Code(err))

	next := testTime.AddDate(0, 1, 0)
	resumed, err := f.svc.Resume(context.Background(), sub.ID, next)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, resumed.Status)
	assert.Equal(t, next, resumed.NextBillingAt)
}

func TestCancelSkipsPendingSchedules(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New()})

	cancelled, err := f.svc.Cancel(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCancelled, cancelled.Status)

	pending, err := f.schedules.FindPendingBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := f.schedules.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.ScheduleStatusSkipped, all[0].Status)
}

func TestUpdateSubscription(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New()})

	plan := "plan-pro"
	amount := mustMoney(t, "19.99", "USD")
	token := "tok-new"
	retries := 5
	updated, err := f.svc.Update(context.Background(), ports.UpdateSubscriptionCommand{
		SubscriptionID:     sub.ID,
		PlanCode:           &plan,
		Amount:             &amount,
		PaymentMethodToken: &token,
		MaxRetryAttempts:   &retries,
	})
	require.NoError(t, err)
	assert.Equal(t, "plan-pro", updated.PlanCode)
	assert.Equal(t, "19.99 USD", updated.Money.String())
	assert.Equal(t, 5, updated.MaxRetryAttempts)
}

func TestProcessDueChargesAndAdvancesAnchor(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New()})

	f.gateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any(), "tok-123", sub.ID.String()).
		Return(gatewayResult("gw-bill"), nil)

	n, err := f.svc.ProcessDueSubscriptions(context.Background(), testTime)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.subscriptions.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, stored.Status)
	assert.Equal(t, testTime.AddDate(0, 1, 0), stored.NextBillingAt)
	assert.Equal(t, 0, stored.RetryCount)

	// The charged attempt is finalized and a fresh one is queued for the
	// next cycle.
	all, err := f.schedules.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	pending, err := f.schedules.FindPendingBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, stored.NextBillingAt, pending[0].ScheduledAt)
}

func TestProcessDueFailureWalksBackoffLadder(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New(), MaxRetryAttempts: 10})

	decline := apperror.ErrGatewayDeclined("2", "insufficient funds")
	expected := []time.Duration{
		24 * time.Hour,
		3 * 24 * time.Hour,
		7 * 24 * time.Hour,
	}

	for i, delay := range expected {
		f.gateway.EXPECT().
			Purchase(gomock.Any(), gomock.Any(), "tok-123", sub.ID.String()).
			Return(nil, decline)

		_, err := f.svc.ProcessDueSubscriptions(context.Background(), f.clock.now)
		require.NoError(t, err)

		stored, err := f.subscriptions.FindByID(context.Background(), sub.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusDelinquent, stored.Status)
		assert.Equal(t, i+1, stored.RetryCount)
		assert.Equal(t, f.clock.now.Add(delay), stored.NextBillingAt)

		f.clock.now = stored.NextBillingAt
	}

	// Fourth failure in a row advances by a whole billing cycle.
	f.gateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any(), "tok-123", sub.ID.String()).
		Return(nil, decline)
	_, err := f.svc.ProcessDueSubscriptions(context.Background(), f.clock.now)
	require.NoError(t, err)

	stored, err := f.subscriptions.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.RetryCount)
	assert.Equal(t, f.clock.now.AddDate(0, 1, 0), stored.NextBillingAt)

	history, err := f.dunning.ListBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestProcessDueCancelsAfterRetryBudget(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New(), MaxRetryAttempts: 2})

	decline := apperror.ErrGatewayDeclined("2", "card expired")
	for i := 0; i < 2; i++ {
		f.gateway.EXPECT().
			Purchase(gomock.Any(), gomock.Any(), "tok-123", sub.ID.String()).
			Return(nil, decline)
		_, err := f.svc.ProcessDueSubscriptions(context.Background(), f.clock.now)
		require.NoError(t, err)

		stored, err := f.subscriptions.FindByID(context.Background(), sub.ID)
		require.NoError(t, err)
		f.clock.now = stored.NextBillingAt
	}

	stored, err := f.subscriptions.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCancelled, stored.Status)

	// No further attempts are queued.
	pending, err := f.schedules.FindPendingBySubscription(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessDueAutoCancelsLongDelinquency(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New(), MaxRetryAttempts: 100})

	decline := apperror.ErrGatewayDeclined("2", "do not honor")
	f.gateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any(), "tok-123", sub.ID.String()).
		Return(nil, decline).
		AnyTimes()

	// Walk failures until the 30-day delinquency window lapses.
	for i := 0; i < 12; i++ {
		_, err := f.svc.ProcessDueSubscriptions(context.Background(), f.clock.now)
		require.NoError(t, err)

		stored, err := f.subscriptions.FindByID(context.Background(), sub.ID)
		require.NoError(t, err)
		if stored.Status == domain.SubscriptionStatusCancelled {
			assert.NotNil(t, stored.DelinquentSince)
			return
		}
		f.clock.now = stored.NextBillingAt
	}
	t.Fatal("subscription was never auto-cancelled")
}

func TestProcessDueSuccessClearsDelinquency(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New(), MaxRetryAttempts: 10})

	f.gateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any(), "tok-123", sub.ID.String()).
		Return(nil, apperror.ErrGatewayDeclined("2", "try again"))
	_, err := f.svc.ProcessDueSubscriptions(context.Background(), f.clock.now)
	require.NoError(t, err)

	stored, err := f.subscriptions.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	f.clock.now = stored.NextBillingAt

	f.gateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any(), "tok-123", sub.ID.String()).
		Return(gatewayResult("gw-rebill"), nil)
	_, err = f.svc.ProcessDueSubscriptions(context.Background(), f.clock.now)
	require.NoError(t, err)

	stored, err = f.subscriptions.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Nil(t, stored.DelinquentSince)
}

func TestProcessDueIgnoresPausedSubscriptions(t *testing.T) {
	f := newSubscriptionFixture(t)
	sub := f.create(t, ports.CreateSubscriptionCommand{CustomerID: uuid.New()})
	_, err := f.svc.Pause(context.Background(), sub.ID)
	require.NoError(t, err)

	n, err := f.svc.ProcessDueSubscriptions(context.Background(), f.clock.now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSubscriptionNotFound(t *testing.T) {
	f := newSubscriptionFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.Equal(t, "SUBSCRIPTION_NOT_FOUND", apperror.Code(err))
}
