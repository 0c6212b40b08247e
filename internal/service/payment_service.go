package service

import (
	"context"
	"fmt"

	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type paymentService struct {
	orders       ports.OrderRepository
	transactions ports.TransactionRepository
	refunds      ports.RefundRepository
	audits       ports.AuditRepository
	gateway      ports.PaymentGateway
	clock        ports.Clock
	log          zerolog.Logger
}

// NewPaymentService wires the card payment lifecycle commands.
func NewPaymentService(
	orders ports.OrderRepository,
	transactions ports.TransactionRepository,
	refunds ports.RefundRepository,
	audits ports.AuditRepository,
	gateway ports.PaymentGateway,
	clock ports.Clock,
	log zerolog.Logger,
) ports.PaymentService {
	return &paymentService{
		orders:       orders,
		transactions: transactions,
		refunds:      refunds,
		audits:       audits,
		gateway:      gateway,
		clock:        clock,
		log:          log,
	}
}

// Purchase authorizes and captures in a single gateway call. The order lands
// in CAPTURED on success and FAILED on a gateway decline or fault.
func (s *paymentService) Purchase(ctx context.Context, cmd ports.PurchaseCommand) (*domain.PaymentOrder, error) {
	return s.oneShot(ctx, oneShotParams{
		customerID:     cmd.CustomerID,
		amount:         cmd.Amount,
		paymentNonce:   cmd.PaymentNonce,
		idempotencyKey: cmd.IdempotencyKey,
		requestID:      cmd.RequestID,
		correlationID:  cmd.CorrelationID,
		txType:         domain.TransactionTypePurchase,
		action:         domain.AuditActionPurchase,
	})
}

// Authorize places a hold without capturing.
func (s *paymentService) Authorize(ctx context.Context, cmd ports.AuthorizeCommand) (*domain.PaymentOrder, error) {
	return s.oneShot(ctx, oneShotParams{
		customerID:     cmd.CustomerID,
		amount:         cmd.Amount,
		paymentNonce:   cmd.PaymentNonce,
		idempotencyKey: cmd.IdempotencyKey,
		requestID:      cmd.RequestID,
		correlationID:  cmd.CorrelationID,
		txType:         domain.TransactionTypeAuthorization,
		action:         domain.AuditActionAuthorize,
	})
}

type oneShotParams struct {
	customerID     uuid.UUID
	amount         domain.Money
	paymentNonce   string
	idempotencyKey string
	requestID      string
	correlationID  string
	txType         domain.PaymentTransactionType
	action         domain.AuditAction
}

func (s *paymentService) oneShot(ctx context.Context, p oneShotParams) (*domain.PaymentOrder, error) {
	if p.amount.IsZero() {
		return nil, apperror.ErrInvalidAmount("amount must be greater than zero")
	}
	if p.requestID != "" {
		existing, err := s.orders.FindByRequestID(ctx, p.requestID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.log.Warn().Str("request_id", p.requestID).Str("order_id", existing.ID.String()).
				Msg("request id already used")
			return nil, apperror.ErrDuplicateRequest()
		}
	}

	now := s.clock.Now()
	order := domain.NewPaymentOrder(p.customerID, p.amount, p.correlationID, p.requestID, p.idempotencyKey, now)
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	var (
		result *ports.GatewayResult
		err    error
	)
	if p.txType == domain.TransactionTypePurchase {
		result, err = s.gateway.Purchase(ctx, p.amount, p.paymentNonce, order.ID.String())
	} else {
		result, err = s.gateway.Authorize(ctx, p.amount, p.paymentNonce, order.ID.String())
	}
	if err != nil {
		s.failOrder(ctx, order)
		return nil, err
	}

	now = s.clock.Now()
	tx := domain.RecordTransaction(order.ID, p.txType, p.amount,
		result.TransactionID, "SUCCESS", result.ProcessedAt, result.ResponseCode, result.ResponseMessage)
	order.AddTransaction(tx)

	if p.txType == domain.TransactionTypePurchase {
		err = order.MarkCaptured(now)
	} else {
		err = order.MarkAuthorized(now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.transactions.Create(ctx, &tx); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.audit(ctx, p.action, order.ID, p.correlationID, fmt.Sprintf("%s %s", p.txType, p.amount))
	s.log.Info().Str("order_id", order.ID.String()).Str("status", string(order.Status)).
		Str("amount", p.amount.String()).Msg("payment order processed")
	return order, nil
}

// Capture settles a prior authorization, in full or in part.
func (s *paymentService) Capture(ctx context.Context, cmd ports.CaptureCommand) (*domain.PaymentOrder, error) {
	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	// The status gate runs before any gateway traffic so a settled or
	// cancelled order can never trigger a second charge.
	if order.Status != domain.OrderStatusCreated && order.Status != domain.OrderStatusAuthorized {
		return nil, apperror.ErrInvalidState(string(order.Status))
	}

	auth := order.FirstTransactionOfType(domain.TransactionTypeAuthorization)
	if auth == nil {
		return nil, apperror.ErrAuthMissing()
	}

	amount := order.Money
	if cmd.Amount != nil {
		amount = *cmd.Amount
	}
	if amount.IsZero() {
		return nil, apperror.ErrInvalidAmount("capture amount must be greater than zero")
	}
	exceeds, err := amount.GreaterThan(auth.Money)
	if err != nil {
		return nil, apperror.ErrInvalidAmount(err.Error())
	}
	if exceeds {
		return nil, apperror.ErrInvalidAmount("capture amount exceeds authorized amount")
	}

	result, err := s.gateway.Capture(ctx, amount, auth.GatewayTransactionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	tx := domain.RecordTransaction(order.ID, domain.TransactionTypeCapture, amount,
		result.TransactionID, "SUCCESS", result.ProcessedAt, result.ResponseCode, result.ResponseMessage)
	order.AddTransaction(tx)
	if err := order.MarkCaptured(now); err != nil {
		return nil, err
	}

	if err := s.transactions.Create(ctx, &tx); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditActionCapture, order.ID, cmd.CorrelationID, fmt.Sprintf("CAPTURE %s", amount))
	s.log.Info().Str("order_id", order.ID.String()).Str("amount", amount.String()).Msg("capture completed")
	return order, nil
}

// Cancel voids an uncaptured hold at the gateway and moves the order to
// CANCELLED.
func (s *paymentService) Cancel(ctx context.Context, cmd ports.CancelCommand) (*domain.PaymentOrder, error) {
	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	if order.Status != domain.OrderStatusCreated && order.Status != domain.OrderStatusAuthorized {
		return nil, apperror.ErrInvalidState(string(order.Status))
	}

	auth := order.FirstTransactionOfType(domain.TransactionTypeAuthorization)
	if auth == nil {
		return nil, apperror.ErrAuthMissing()
	}

	result, err := s.gateway.VoidTransaction(ctx, auth.GatewayTransactionID)
	if err != nil {
		return nil, err
	}
	tx := domain.RecordTransaction(order.ID, domain.TransactionTypeVoid, auth.Money,
		result.TransactionID, "SUCCESS", result.ProcessedAt, result.ResponseCode, result.ResponseMessage)
	order.AddTransaction(tx)
	if err := s.transactions.Create(ctx, &tx); err != nil {
		return nil, err
	}

	if err := order.MarkCancelled(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditActionCancel, order.ID, cmd.CorrelationID, "CANCEL")
	s.log.Info().Str("order_id", order.ID.String()).Msg("order cancelled")
	return order, nil
}

// Refund returns captured funds. Partial refunds are allowed until the sum of
// refunds reaches the captured total.
func (s *paymentService) Refund(ctx context.Context, cmd ports.RefundCommand) (*domain.Refund, error) {
	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	captured := order.FirstTransactionOfType(domain.TransactionTypeCapture, domain.TransactionTypePurchase)
	if captured == nil {
		return nil, apperror.ErrCaptureMissing()
	}

	capturedTotal := order.TotalCapturedAmount()
	refundedTotal := order.TotalRefundedAmount()
	remaining := capturedTotal.Sub(refundedTotal)

	amount := domain.Money{Amount: remaining, Currency: order.Money.Currency}
	if cmd.Amount != nil {
		amount = *cmd.Amount
	}
	if amount.IsZero() {
		return nil, apperror.ErrInvalidAmount("refund amount must be greater than zero")
	}
	if amount.Currency != order.Money.Currency {
		return nil, apperror.ErrInvalidAmount("refund currency does not match order currency")
	}
	if refundedTotal.Add(amount.Amount).GreaterThan(capturedTotal) {
		return nil, apperror.ErrInvalidAmount(
			fmt.Sprintf("refund amount exceeds remaining captured balance of %s", remaining.StringFixed(2)))
	}

	result, err := s.gateway.Refund(ctx, amount, captured.GatewayTransactionID, cmd.CardLastFour)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	tx := domain.RecordTransaction(order.ID, domain.TransactionTypeRefund, amount,
		result.TransactionID, "SUCCESS", result.ProcessedAt, result.ResponseCode, result.ResponseMessage)
	order.AddTransaction(tx)
	if err := order.MarkRefunded(now); err != nil {
		return nil, err
	}

	refund := domain.RecordRefund(captured.ID, amount, "SUCCESS", result.TransactionID, result.ProcessedAt)

	if err := s.transactions.Create(ctx, &tx); err != nil {
		return nil, err
	}
	if err := s.refunds.Create(ctx, &refund); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.audit(ctx, domain.AuditActionRefund, order.ID, cmd.CorrelationID, fmt.Sprintf("REFUND %s", amount))
	s.log.Info().Str("order_id", order.ID.String()).Str("amount", amount.String()).Msg("refund completed")
	return &refund, nil
}

func (s *paymentService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.PaymentOrder, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	return order, nil
}

// failOrder parks the order in FAILED after a gateway fault. The save is best
// effort; the original gateway error is what the caller sees.
func (s *paymentService) failOrder(ctx context.Context, order *domain.PaymentOrder) {
	order.MarkFailed(s.clock.Now())
	if err := s.orders.Save(ctx, order); err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to persist FAILED order")
	}
}

func (s *paymentService) audit(ctx context.Context, action domain.AuditAction, orderID uuid.UUID, correlationID, detail string) {
	entry := &domain.AuditEntry{
		ID:            uuid.New(),
		Action:        action,
		ResourceType:  "payment_order",
		ResourceID:    orderID.String(),
		CorrelationID: correlationID,
		Detail:        detail,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("order_id", orderID.String()).Msg("audit write failed")
	}
}
