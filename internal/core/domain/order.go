package domain

import (
	"time"

	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentOrderStatus represents the lifecycle state of a payment order.
type PaymentOrderStatus string

const (
	OrderStatusCreated    PaymentOrderStatus = "CREATED"
	OrderStatusAuthorized PaymentOrderStatus = "AUTHORIZED"
	OrderStatusCaptured   PaymentOrderStatus = "CAPTURED"
	OrderStatusSettled    PaymentOrderStatus = "SETTLED"
	OrderStatusCancelled  PaymentOrderStatus = "CANCELLED"
	OrderStatusRefunded   PaymentOrderStatus = "REFUNDED"
	OrderStatusFailed     PaymentOrderStatus = "FAILED"
)

// PaymentOrder is the aggregate root for a single card payment. Transactions
// are append-only and ordered by processing time. Version backs optimistic
// concurrency control on every save.
type PaymentOrder struct {
	ID             uuid.UUID            `json:"id"`
	CustomerID     uuid.UUID            `json:"customer_id"`
	Money          Money                `json:"money"`
	Status         PaymentOrderStatus   `json:"status"`
	CorrelationID  string               `json:"correlation_id"`
	RequestID      string               `json:"request_id"`
	IdempotencyKey string               `json:"idempotency_key"`
	Transactions   []PaymentTransaction `json:"transactions"`
	Version        int64                `json:"version"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// NewPaymentOrder creates an order in CREATED state.
func NewPaymentOrder(customerID uuid.UUID, money Money, correlationID, requestID, idempotencyKey string, now time.Time) *PaymentOrder {
	return &PaymentOrder{
		ID:             uuid.New(),
		CustomerID:     customerID,
		Money:          money,
		Status:         OrderStatusCreated,
		CorrelationID:  correlationID,
		RequestID:      requestID,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddTransaction appends a ledger entry to the order.
func (o *PaymentOrder) AddTransaction(tx PaymentTransaction) {
	o.Transactions = append(o.Transactions, tx)
	o.UpdatedAt = tx.ProcessedAt
}

// MarkAuthorized transitions CREATED -> AUTHORIZED.
func (o *PaymentOrder) MarkAuthorized(now time.Time) error {
	return o.transition(OrderStatusAuthorized, now, OrderStatusCreated)
}

// MarkCaptured transitions CREATED/AUTHORIZED -> CAPTURED.
func (o *PaymentOrder) MarkCaptured(now time.Time) error {
	return o.transition(OrderStatusCaptured, now, OrderStatusCreated, OrderStatusAuthorized)
}

// MarkSettled transitions CAPTURED -> SETTLED.
func (o *PaymentOrder) MarkSettled(now time.Time) error {
	return o.transition(OrderStatusSettled, now, OrderStatusCaptured)
}

// MarkCancelled transitions CREATED/AUTHORIZED -> CANCELLED.
func (o *PaymentOrder) MarkCancelled(now time.Time) error {
	return o.transition(OrderStatusCancelled, now, OrderStatusCreated, OrderStatusAuthorized)
}

// MarkRefunded transitions CAPTURED/SETTLED -> REFUNDED. REFUNDED re-enters
// itself so repeat partial refunds remain valid.
func (o *PaymentOrder) MarkRefunded(now time.Time) error {
	return o.transition(OrderStatusRefunded, now, OrderStatusCaptured, OrderStatusSettled, OrderStatusRefunded)
}

// MarkFailed is reachable from any state as an explicit failure marker.
func (o *PaymentOrder) MarkFailed(now time.Time) {
	o.Status = OrderStatusFailed
	o.UpdatedAt = now
}

// FirstTransactionOfType returns the earliest transaction matching any of the
// given types, or nil.
func (o *PaymentOrder) FirstTransactionOfType(types ...PaymentTransactionType) *PaymentTransaction {
	for i := range o.Transactions {
		for _, tt := range types {
			if o.Transactions[i].Type == tt {
				return &o.Transactions[i]
			}
		}
	}
	return nil
}

// TotalCapturedAmount sums CAPTURE and PURCHASE transaction amounts.
func (o *PaymentOrder) TotalCapturedAmount() decimal.Decimal {
	return o.sumByType(TransactionTypeCapture, TransactionTypePurchase)
}

// TotalRefundedAmount sums REFUND transaction amounts.
func (o *PaymentOrder) TotalRefundedAmount() decimal.Decimal {
	return o.sumByType(TransactionTypeRefund)
}

func (o *PaymentOrder) sumByType(types ...PaymentTransactionType) decimal.Decimal {
	total := decimal.Zero
	for i := range o.Transactions {
		for _, tt := range types {
			if o.Transactions[i].Type == tt {
				total = total.Add(o.Transactions[i].Money.Amount)
			}
		}
	}
	return total
}

func (o *PaymentOrder) transition(to PaymentOrderStatus, now time.Time, allowedFrom ...PaymentOrderStatus) error {
	for _, s := range allowedFrom {
		if o.Status == s {
			o.Status = to
			o.UpdatedAt = now
			return nil
		}
	}
	return apperror.ErrInvalidState(string(o.Status))
}
