package ports

import (
	"context"
	"time"

	"cardflow/internal/core/domain"

	"github.com/google/uuid"
)

// OrderRepository persists payment orders. Save performs a version
// compare-and-swap: an insert when Version is zero, otherwise an update that
// fails with a VERSION_CONFLICT error when the stored version has moved.
// FindByID loads the order together with its transaction ledger.
type OrderRepository interface {
	Save(ctx context.Context, order *domain.PaymentOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentOrder, error)
	FindByRequestID(ctx context.Context, requestID string) (*domain.PaymentOrder, error)
}

// TransactionRepository persists the append-only payment transaction ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.PaymentTransaction) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentTransaction, error)
}

// RefundRepository persists refund attempts.
type RefundRepository interface {
	Create(ctx context.Context, refund *domain.Refund) error
	ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]domain.Refund, error)
}

// SubscriptionRepository persists subscriptions. Save follows the same
// version compare-and-swap contract as OrderRepository.
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *domain.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	FindByClientReference(ctx context.Context, clientReference string) (*domain.Subscription, error)
	FindDue(ctx context.Context, statuses []domain.SubscriptionStatus, threshold time.Time) ([]domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
}

// ScheduleRepository persists billing attempts.
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *domain.SubscriptionSchedule) error
	FindPendingBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionSchedule, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionSchedule, error)
}

// DunningRepository persists the append-only dunning trail.
type DunningRepository interface {
	Create(ctx context.Context, entry *domain.DunningEntry) error
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]domain.DunningEntry, error)
}

// WebhookEventRepository persists ingested webhook events. Save follows the
// version compare-and-swap contract; the eventId column is unique.
type WebhookEventRepository interface {
	Save(ctx context.Context, event *domain.WebhookEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error)
	FindByEventID(ctx context.Context, eventID string) (*domain.WebhookEvent, error)
	FindFirstPending(ctx context.Context) (*domain.WebhookEvent, error)
	FindStaleProcessing(ctx context.Context, before time.Time) ([]domain.WebhookEvent, error)
}

// IdempotencyRepository persists idempotency records. Records are write-once.
type IdempotencyRepository interface {
	Create(ctx context.Context, record *domain.IdempotencyRecord) error
	Find(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// AuditRepository persists command audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
}

// IdempotencyCache is the fast-path idempotency lookup in front of the
// repository.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil, nil on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
