package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentTransactionType represents the kind of gateway interaction recorded
// against an order.
type PaymentTransactionType string

const (
	TransactionTypeAuthorization PaymentTransactionType = "AUTHORIZATION"
	TransactionTypeCapture       PaymentTransactionType = "CAPTURE"
	TransactionTypePurchase      PaymentTransactionType = "PURCHASE"
	TransactionTypeVoid          PaymentTransactionType = "VOID"
	TransactionTypeRefund        PaymentTransactionType = "REFUND"
)

// PaymentTransaction is an immutable ledger entry recording one gateway call.
// Entries are never mutated after creation.
type PaymentTransaction struct {
	ID                   uuid.UUID              `json:"id"`
	OrderID              uuid.UUID              `json:"order_id"`
	Type                 PaymentTransactionType `json:"type"`
	Money                Money                  `json:"money"`
	GatewayTransactionID string                 `json:"gateway_transaction_id"`
	Status               string                 `json:"status"`
	ProcessedAt          time.Time              `json:"processed_at"`
	ResponseCode         string                 `json:"response_code"`
	ResponseMessage      string                 `json:"response_message"`
}

// RecordTransaction creates a ledger entry for an order.
func RecordTransaction(orderID uuid.UUID, txType PaymentTransactionType, money Money,
	gatewayTransactionID, status string, processedAt time.Time, responseCode, responseMessage string) PaymentTransaction {
	return PaymentTransaction{
		ID:                   uuid.New(),
		OrderID:              orderID,
		Type:                 txType,
		Money:                money,
		GatewayTransactionID: gatewayTransactionID,
		Status:               status,
		ProcessedAt:          processedAt,
		ResponseCode:         responseCode,
		ResponseMessage:      responseMessage,
	}
}

// Refund records one refund attempt against a capture or purchase
// transaction.
type Refund struct {
	ID                   uuid.UUID `json:"id"`
	TransactionID        uuid.UUID `json:"transaction_id"`
	Money                Money     `json:"money"`
	Status               string    `json:"status"`
	GatewayTransactionID string    `json:"gateway_transaction_id"`
	ProcessedAt          time.Time `json:"processed_at"`
}

// RecordRefund creates a refund row for the given captured transaction.
func RecordRefund(transactionID uuid.UUID, money Money, status, gatewayTransactionID string, processedAt time.Time) Refund {
	return Refund{
		ID:                   uuid.New(),
		TransactionID:        transactionID,
		Money:                money,
		Status:               status,
		GatewayTransactionID: gatewayTransactionID,
		ProcessedAt:          processedAt,
	}
}
