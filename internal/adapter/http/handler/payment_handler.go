package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cardflow/internal/adapter/http/dto"
	"cardflow/internal/adapter/http/middleware"
	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/internal/service"
	"cardflow/pkg/apperror"
	"cardflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// PaymentHandler handles the card payment lifecycle endpoints.
type PaymentHandler struct {
	payments ports.PaymentService
	guard    *service.IdempotencyGuard
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments ports.PaymentService, guard *service.IdempotencyGuard) *PaymentHandler {
	return &PaymentHandler{payments: payments, guard: guard}
}

// Purchase handles POST /api/v1/payments/purchase.
func (h *PaymentHandler) Purchase(c *gin.Context) {
	body, req, ok := bindPayment(c)
	if !ok {
		return
	}
	cmd, err := toPaymentCommand(c, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	guarded(c, h.guard, guardPayload(c, body), func(ctx context.Context) ([]byte, int, error) {
		order, err := h.payments.Purchase(ctx, ports.PurchaseCommand(cmd))
		if err != nil {
			return nil, 0, err
		}
		raw, err := json.Marshal(toOrderResponse(order))
		return raw, http.StatusCreated, err
	})
}

// Authorize handles POST /api/v1/payments/authorize.
func (h *PaymentHandler) Authorize(c *gin.Context) {
	body, req, ok := bindPayment(c)
	if !ok {
		return
	}
	cmd, err := toPaymentCommand(c, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	guarded(c, h.guard, guardPayload(c, body), func(ctx context.Context) ([]byte, int, error) {
		order, err := h.payments.Authorize(ctx, cmd)
		if err != nil {
			return nil, 0, err
		}
		raw, err := json.Marshal(toOrderResponse(order))
		return raw, http.StatusCreated, err
	})
}

// Capture handles POST /api/v1/payments/:id/capture.
func (h *PaymentHandler) Capture(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}
	var req dto.CaptureRequest
	if len(body) > 0 {
		if err := binding.JSON.BindBody(body, &req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}
	amount, err := optionalMoney(req.Amount, req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	guarded(c, h.guard, guardPayload(c, body), func(ctx context.Context) ([]byte, int, error) {
		order, err := h.payments.Capture(ctx, ports.CaptureCommand{
			OrderID:        orderID,
			Amount:         amount,
			IdempotencyKey: c.GetHeader(middleware.HeaderIdempotencyKey),
			CorrelationID:  c.GetString(middleware.CtxCorrelationID),
		})
		if err != nil {
			return nil, 0, err
		}
		raw, err := json.Marshal(toOrderResponse(order))
		return raw, http.StatusOK, err
	})
}

// Cancel handles POST /api/v1/payments/:id/cancel.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	guarded(c, h.guard, guardPayload(c, nil), func(ctx context.Context) ([]byte, int, error) {
		order, err := h.payments.Cancel(ctx, ports.CancelCommand{
			OrderID:        orderID,
			IdempotencyKey: c.GetHeader(middleware.HeaderIdempotencyKey),
			CorrelationID:  c.GetString(middleware.CtxCorrelationID),
		})
		if err != nil {
			return nil, 0, err
		}
		raw, err := json.Marshal(toOrderResponse(order))
		return raw, http.StatusOK, err
	})
}

// Refund handles POST /api/v1/payments/:id/refund.
func (h *PaymentHandler) Refund(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}
	var req dto.RefundRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	amount, err := optionalMoney(req.Amount, req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	guarded(c, h.guard, guardPayload(c, body), func(ctx context.Context) ([]byte, int, error) {
		refund, err := h.payments.Refund(ctx, ports.RefundCommand{
			OrderID:        orderID,
			Amount:         amount,
			CardLastFour:   req.CardLastFour,
			IdempotencyKey: c.GetHeader(middleware.HeaderIdempotencyKey),
			CorrelationID:  c.GetString(middleware.CtxCorrelationID),
		})
		if err != nil {
			return nil, 0, err
		}
		raw, err := json.Marshal(toRefundResponse(refund))
		return raw, http.StatusCreated, err
	})
}

// GetOrder handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := h.payments.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toOrderResponse(order))
}

func bindPayment(c *gin.Context) ([]byte, dto.PaymentRequest, bool) {
	var req dto.PaymentRequest
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return nil, req, false
	}
	if err := binding.JSON.BindBody(body, &req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return nil, req, false
	}
	return body, req, true
}

func toPaymentCommand(c *gin.Context, req dto.PaymentRequest) (ports.AuthorizeCommand, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return ports.AuthorizeCommand{}, apperror.Validation("customer_id must be a UUID")
	}
	money, err := domain.NewMoneyFromString(req.Amount, req.Currency)
	if err != nil {
		return ports.AuthorizeCommand{}, apperror.Validation(err.Error())
	}
	return ports.AuthorizeCommand{
		CustomerID:     customerID,
		Amount:         money,
		PaymentNonce:   req.PaymentNonce,
		IdempotencyKey: c.GetHeader(middleware.HeaderIdempotencyKey),
		RequestID:      c.GetString(middleware.CtxRequestID),
		CorrelationID:  c.GetString(middleware.CtxCorrelationID),
	}, nil
}

func orderIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func optionalMoney(amount, currency *string) (*domain.Money, error) {
	if amount == nil {
		return nil, nil
	}
	if currency == nil {
		return nil, apperror.Validation("currency is required when amount is set")
	}
	money, err := domain.NewMoneyFromString(*amount, *currency)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	return &money, nil
}

// guardPayload prefixes the body with the method and path so an idempotency
// key replayed against a different endpoint or order is rejected instead of
// served a stale response.
func guardPayload(c *gin.Context, body []byte) []byte {
	prefix := c.Request.Method + " " + c.Request.URL.Path + "\n"
	return append([]byte(prefix), body...)
}

func guarded(c *gin.Context, guard *service.IdempotencyGuard, payload []byte, fn func(ctx context.Context) ([]byte, int, error)) {
	key := c.GetHeader(middleware.HeaderIdempotencyKey)
	raw, status, err := guard.Execute(c.Request.Context(), key, payload, fn)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Raw(c, status, raw)
}

func toOrderResponse(order *domain.PaymentOrder) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:            order.ID.String(),
		CustomerID:    order.CustomerID.String(),
		Amount:        order.Money.Amount.StringFixed(2),
		Currency:      order.Money.Currency,
		Status:        string(order.Status),
		CorrelationID: order.CorrelationID,
		Transactions:  make([]dto.TransactionResponse, 0, len(order.Transactions)),
		CreatedAt:     order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     order.UpdatedAt.Format(time.RFC3339),
	}
	for _, tx := range order.Transactions {
		resp.Transactions = append(resp.Transactions, dto.TransactionResponse{
			ID:                   tx.ID.String(),
			Type:                 string(tx.Type),
			Amount:               tx.Money.Amount.StringFixed(2),
			Currency:             tx.Money.Currency,
			Status:               tx.Status,
			GatewayTransactionID: tx.GatewayTransactionID,
			ResponseCode:         tx.ResponseCode,
			ResponseMessage:      tx.ResponseMessage,
			ProcessedAt:          tx.ProcessedAt.Format(time.RFC3339),
		})
	}
	return resp
}

func toRefundResponse(refund *domain.Refund) dto.RefundResponse {
	return dto.RefundResponse{
		ID:                   refund.ID.String(),
		TransactionID:        refund.TransactionID.String(),
		Amount:               refund.Money.Amount.StringFixed(2),
		Currency:             refund.Money.Currency,
		Status:               refund.Status,
		GatewayTransactionID: refund.GatewayTransactionID,
		ProcessedAt:          refund.ProcessedAt.Format(time.RFC3339),
	}
}
