// Package memory provides map-backed repository implementations with the
// same version compare-and-swap semantics as the postgres adapters. They back
// the integration tests and any single-node deployment that runs without a
// database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/pkg/apperror"

	"github.com/google/uuid"
)

// OrderRepository is an in-memory ports.OrderRepository.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]domain.PaymentOrder
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[uuid.UUID]domain.PaymentOrder)}
}

func (r *OrderRepository) Save(_ context.Context, order *domain.PaymentOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		if order.Version != 0 {
			return apperror.ErrVersionConflict("payment order")
		}
	} else if stored.Version != order.Version {
		return apperror.ErrVersionConflict("payment order")
	}
	order.Version++
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.PaymentOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	out := cloneOrder(&order)
	return &out, nil
}

func (r *OrderRepository) FindByRequestID(_ context.Context, requestID string) (*domain.PaymentOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, order := range r.orders {
		if order.RequestID == requestID {
			out := cloneOrder(&order)
			return &out, nil
		}
	}
	return nil, nil
}

func cloneOrder(order *domain.PaymentOrder) domain.PaymentOrder {
	out := *order
	out.Transactions = append([]domain.PaymentTransaction(nil), order.Transactions...)
	return out
}

// TransactionRepository is an in-memory ports.TransactionRepository.
type TransactionRepository struct {
	mu           sync.RWMutex
	transactions []domain.PaymentTransaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

func (r *TransactionRepository) Create(_ context.Context, tx *domain.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, *tx)
	return nil
}

func (r *TransactionRepository) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]domain.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PaymentTransaction
	for _, tx := range r.transactions {
		if tx.OrderID == orderID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProcessedAt.Before(out[j].ProcessedAt) })
	return out, nil
}

// RefundRepository is an in-memory ports.RefundRepository.
type RefundRepository struct {
	mu      sync.RWMutex
	refunds []domain.Refund
}

func NewRefundRepository() *RefundRepository {
	return &RefundRepository{}
}

func (r *RefundRepository) Create(_ context.Context, refund *domain.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunds = append(r.refunds, *refund)
	return nil
}

func (r *RefundRepository) ListByTransactionID(_ context.Context, transactionID uuid.UUID) ([]domain.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Refund
	for _, refund := range r.refunds {
		if refund.TransactionID == transactionID {
			out = append(out, refund)
		}
	}
	return out, nil
}

// SubscriptionRepository is an in-memory ports.SubscriptionRepository.
type SubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]domain.Subscription
}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{subs: make(map[uuid.UUID]domain.Subscription)}
}

func (r *SubscriptionRepository) Save(_ context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.subs[sub.ID]
	if !ok {
		if sub.Version != 0 {
			return apperror.ErrVersionConflict("subscription")
		}
	} else if stored.Version != sub.Version {
		return apperror.ErrVersionConflict("subscription")
	}
	sub.Version++
	r.subs[sub.ID] = *sub
	return nil
}

func (r *SubscriptionRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r *SubscriptionRepository) FindByClientReference(_ context.Context, clientReference string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if sub.ClientReference == clientReference {
			out := sub
			return &out, nil
		}
	}
	return nil, nil
}

func (r *SubscriptionRepository) FindDue(_ context.Context, statuses []domain.SubscriptionStatus, threshold time.Time) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Subscription
	for _, sub := range r.subs {
		if !sub.NextBillingAt.After(threshold) && statusIn(sub.Status, statuses) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextBillingAt.Before(out[j].NextBillingAt) })
	return out, nil
}

func (r *SubscriptionRepository) List(_ context.Context) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func statusIn(status domain.SubscriptionStatus, statuses []domain.SubscriptionStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// ScheduleRepository is an in-memory ports.ScheduleRepository.
type ScheduleRepository struct {
	mu        sync.RWMutex
	schedules map[uuid.UUID]domain.SubscriptionSchedule
}

func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{schedules: make(map[uuid.UUID]domain.SubscriptionSchedule)}
}

func (r *ScheduleRepository) Save(_ context.Context, schedule *domain.SubscriptionSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[schedule.ID] = *schedule
	return nil
}

func (r *ScheduleRepository) FindPendingBySubscription(_ context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionSchedule, error) {
	return r.list(subscriptionID, true)
}

func (r *ScheduleRepository) ListBySubscription(_ context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionSchedule, error) {
	return r.list(subscriptionID, false)
}

func (r *ScheduleRepository) list(subscriptionID uuid.UUID, pendingOnly bool) ([]domain.SubscriptionSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SubscriptionSchedule
	for _, schedule := range r.schedules {
		if schedule.SubscriptionID != subscriptionID {
			continue
		}
		if pendingOnly && schedule.Status != domain.ScheduleStatusPending {
			continue
		}
		out = append(out, schedule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

// DunningRepository is an in-memory ports.DunningRepository.
type DunningRepository struct {
	mu      sync.RWMutex
	entries []domain.DunningEntry
}

func NewDunningRepository() *DunningRepository {
	return &DunningRepository{}
}

func (r *DunningRepository) Create(_ context.Context, entry *domain.DunningEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *DunningRepository) ListBySubscription(_ context.Context, subscriptionID uuid.UUID) ([]domain.DunningEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.DunningEntry
	for _, entry := range r.entries {
		if entry.SubscriptionID == subscriptionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// WebhookEventRepository is an in-memory ports.WebhookEventRepository.
type WebhookEventRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]domain.WebhookEvent
}

func NewWebhookEventRepository() *WebhookEventRepository {
	return &WebhookEventRepository{events: make(map[uuid.UUID]domain.WebhookEvent)}
}

func (r *WebhookEventRepository) Save(_ context.Context, event *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[event.ID]
	if !ok {
		if event.Version != 0 {
			return apperror.ErrVersionConflict("webhook event")
		}
		for _, e := range r.events {
			if e.EventID == event.EventID {
				return apperror.ErrDuplicateRequest()
			}
		}
	} else if stored.Version != event.Version {
		return apperror.ErrVersionConflict("webhook event")
	}
	event.Version++
	r.events[event.ID] = *event
	return nil
}

func (r *WebhookEventRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.WebhookEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (r *WebhookEventRepository) FindByEventID(_ context.Context, eventID string) (*domain.WebhookEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, event := range r.events {
		if event.EventID == eventID {
			out := event
			return &out, nil
		}
	}
	return nil, nil
}

func (r *WebhookEventRepository) FindFirstPending(_ context.Context) (*domain.WebhookEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var oldest *domain.WebhookEvent
	for _, event := range r.events {
		if event.ProcessedStatus != domain.WebhookStatusPending {
			continue
		}
		e := event
		if oldest == nil || e.ReceivedAt.Before(oldest.ReceivedAt) {
			oldest = &e
		}
	}
	return oldest, nil
}

func (r *WebhookEventRepository) FindStaleProcessing(_ context.Context, before time.Time) ([]domain.WebhookEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WebhookEvent
	for _, event := range r.events {
		if event.ProcessedStatus != domain.WebhookStatusProcessing {
			continue
		}
		if event.ProcessedAt != nil && event.ProcessedAt.Before(before) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

// IdempotencyRepository is an in-memory ports.IdempotencyRepository.
type IdempotencyRepository struct {
	mu      sync.RWMutex
	records map[string]domain.IdempotencyRecord
}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{records: make(map[string]domain.IdempotencyRecord)}
}

func (r *IdempotencyRepository) Create(_ context.Context, record *domain.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.IdempotencyKey]; ok {
		return apperror.ErrDuplicateRequest()
	}
	r.records[record.IdempotencyKey] = *record
	return nil
}

func (r *IdempotencyRepository) Find(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// AuditRepository is an in-memory ports.AuditRepository.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// Entries returns a snapshot of recorded audit entries.
func (r *AuditRepository) Entries() []domain.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.AuditEntry(nil), r.entries...)
}

var (
	_ ports.OrderRepository        = (*OrderRepository)(nil)
	_ ports.TransactionRepository  = (*TransactionRepository)(nil)
	_ ports.RefundRepository       = (*RefundRepository)(nil)
	_ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)
	_ ports.ScheduleRepository     = (*ScheduleRepository)(nil)
	_ ports.DunningRepository      = (*DunningRepository)(nil)
	_ ports.WebhookEventRepository = (*WebhookEventRepository)(nil)
	_ ports.IdempotencyRepository  = (*IdempotencyRepository)(nil)
	_ ports.AuditRepository        = (*AuditRepository)(nil)
)
