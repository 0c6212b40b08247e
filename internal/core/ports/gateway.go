package ports

import (
	"context"
	"time"

	"cardflow/internal/core/domain"

	"github.com/google/uuid"
)

// GatewayResult is the normalized outcome of a successful processor call.
type GatewayResult struct {
	TransactionID   string
	ResponseCode    string
	ResponseMessage string
	ProcessedAt     time.Time
}

// PaymentGateway is the card processor the engine talks to. Declines surface
// as GATEWAY_DECLINED errors, transport and processor faults as GATEWAY_ERROR.
type PaymentGateway interface {
	Authorize(ctx context.Context, amount domain.Money, paymentNonce, orderRef string) (*GatewayResult, error)
	Capture(ctx context.Context, amount domain.Money, gatewayTransactionID string) (*GatewayResult, error)
	Purchase(ctx context.Context, amount domain.Money, paymentNonce, orderRef string) (*GatewayResult, error)
	Refund(ctx context.Context, amount domain.Money, gatewayTransactionID, cardLastFour string) (*GatewayResult, error)
	VoidTransaction(ctx context.Context, gatewayTransactionID string) (*GatewayResult, error)
}

// EventPublisher hands a stored webhook event ID to the processing queue.
type EventPublisher interface {
	Publish(ctx context.Context, eventID uuid.UUID) error
}

// EventConsumer blocks until a webhook event ID is available on the queue or
// the context is done.
type EventConsumer interface {
	Consume(ctx context.Context) (uuid.UUID, error)
}
