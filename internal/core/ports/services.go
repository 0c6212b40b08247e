package ports

import (
	"context"
	"time"

	"cardflow/internal/core/domain"

	"github.com/google/uuid"
)

// PurchaseCommand authorizes and captures in one step.
type PurchaseCommand struct {
	CustomerID     uuid.UUID
	Amount         domain.Money
	PaymentNonce   string
	IdempotencyKey string
	RequestID      string
	CorrelationID  string
}

// AuthorizeCommand places a hold without capturing.
type AuthorizeCommand struct {
	CustomerID     uuid.UUID
	Amount         domain.Money
	PaymentNonce   string
	IdempotencyKey string
	RequestID      string
	CorrelationID  string
}

// CaptureCommand settles a prior authorization. A nil Amount captures the
// full authorized amount.
type CaptureCommand struct {
	OrderID        uuid.UUID
	Amount         *domain.Money
	IdempotencyKey string
	CorrelationID  string
}

// CancelCommand voids an order before capture.
type CancelCommand struct {
	OrderID        uuid.UUID
	IdempotencyKey string
	CorrelationID  string
}

// RefundCommand returns captured funds. A nil Amount refunds the remaining
// captured balance.
type RefundCommand struct {
	OrderID        uuid.UUID
	Amount         *domain.Money
	CardLastFour   string
	IdempotencyKey string
	CorrelationID  string
}

// PaymentService executes the card payment lifecycle commands.
type PaymentService interface {
	Purchase(ctx context.Context, cmd PurchaseCommand) (*domain.PaymentOrder, error)
	Authorize(ctx context.Context, cmd AuthorizeCommand) (*domain.PaymentOrder, error)
	Capture(ctx context.Context, cmd CaptureCommand) (*domain.PaymentOrder, error)
	Cancel(ctx context.Context, cmd CancelCommand) (*domain.PaymentOrder, error)
	Refund(ctx context.Context, cmd RefundCommand) (*domain.Refund, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.PaymentOrder, error)
}

// CreateSubscriptionCommand opens a recurring billing agreement.
type CreateSubscriptionCommand struct {
	CustomerID         uuid.UUID
	PlanCode           string
	ClientReference    string
	Amount             domain.Money
	Cycle              domain.BillingCycle
	IntervalDays       int
	TrialEnd           *time.Time
	FirstBillingAt     time.Time
	PaymentMethodToken string
	MaxRetryAttempts   int
	IdempotencyKey     string
	CorrelationID      string
}

// UpdateSubscriptionCommand changes plan or billing details. Nil fields are
// left untouched.
type UpdateSubscriptionCommand struct {
	SubscriptionID     uuid.UUID
	PlanCode           *string
	Amount             *domain.Money
	PaymentMethodToken *string
	MaxRetryAttempts   *int
	IntervalDays       *int
	NextBillingAt      *time.Time
}

// SubscriptionService manages recurring billing agreements and drives the
// due-charge cycle.
type SubscriptionService interface {
	Create(ctx context.Context, cmd CreateSubscriptionCommand) (*domain.Subscription, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	Pause(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	Resume(ctx context.Context, id uuid.UUID, nextBillingAt time.Time) (*domain.Subscription, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	Update(ctx context.Context, cmd UpdateSubscriptionCommand) (*domain.Subscription, error)
	Schedules(ctx context.Context, id uuid.UUID) ([]domain.SubscriptionSchedule, error)
	DunningHistory(ctx context.Context, id uuid.UUID) ([]domain.DunningEntry, error)

	// ProcessDueSubscriptions charges every subscription whose next billing
	// time is at or before threshold and reports how many were attempted.
	ProcessDueSubscriptions(ctx context.Context, threshold time.Time) (int, error)
}

// RecordEventCommand ingests a processor webhook notification.
type RecordEventCommand struct {
	EventID   string
	EventType string
	Payload   []byte
	Signature string
}

// WebhookService ingests, dedupes and drives processing of webhook events.
type WebhookService interface {
	// RecordEvent stores and enqueues a new event. When the event ID was seen
	// before it returns the stored event with duplicate set and no error.
	RecordEvent(ctx context.Context, cmd RecordEventCommand) (event *domain.WebhookEvent, duplicate bool, err error)
	GetEvent(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error)
	MarkProcessing(ctx context.Context, event *domain.WebhookEvent) error
	MarkCompleted(ctx context.Context, event *domain.WebhookEvent) error
	MarkFailed(ctx context.Context, event *domain.WebhookEvent, reason string) error
	FetchNextPending(ctx context.Context) (*domain.WebhookEvent, error)

	// RequeueStale flips PROCESSING events older than before back to PENDING
	// and republishes them, returning how many were requeued.
	RequeueStale(ctx context.Context, before time.Time) (int, error)
}
