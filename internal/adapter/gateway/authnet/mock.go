package authnet

import (
	"context"
	"strings"
	"time"

	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// declinePrefix on a payment nonce or method token forces a decline, which
// makes failure paths reachable in local and sandbox environments.
const declinePrefix = "declined-"

// MockGateway approves every transaction without leaving the process. It
// backs gateway mode "mock".
type MockGateway struct {
	log zerolog.Logger
}

func NewMockGateway(log zerolog.Logger) *MockGateway {
	return &MockGateway{log: log}
}

var _ ports.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Authorize(_ context.Context, amount domain.Money, paymentNonce, ref string) (*ports.GatewayResult, error) {
	return g.result("authorize", amount, paymentNonce, ref)
}

func (g *MockGateway) Purchase(_ context.Context, amount domain.Money, paymentNonce, ref string) (*ports.GatewayResult, error) {
	return g.result("purchase", amount, paymentNonce, ref)
}

func (g *MockGateway) Capture(_ context.Context, amount domain.Money, gatewayTransactionID string) (*ports.GatewayResult, error) {
	return g.result("capture", amount, "", gatewayTransactionID)
}

func (g *MockGateway) Refund(_ context.Context, amount domain.Money, gatewayTransactionID, _ string) (*ports.GatewayResult, error) {
	return g.result("refund", amount, "", gatewayTransactionID)
}

func (g *MockGateway) VoidTransaction(_ context.Context, gatewayTransactionID string) (*ports.GatewayResult, error) {
	return g.result("void", domain.Money{}, "", gatewayTransactionID)
}

func (g *MockGateway) result(op string, amount domain.Money, nonce, ref string) (*ports.GatewayResult, error) {
	if strings.HasPrefix(nonce, declinePrefix) {
		return nil, apperror.ErrGatewayDeclined("2", "This transaction has been declined.")
	}
	id := "mock-" + uuid.NewString()
	g.log.Debug().Str("operation", op).Str("ref", ref).Str("amount", amount.String()).
		Str("transaction_id", id).Msg("mock gateway approved")
	return &ports.GatewayResult{
		TransactionID:   id,
		ResponseCode:    responseCodeApproved,
		ResponseMessage: "This transaction has been approved.",
		ProcessedAt:     time.Now().UTC(),
	}, nil
}
