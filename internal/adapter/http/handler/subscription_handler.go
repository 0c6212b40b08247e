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

// SubscriptionHandler handles recurring billing endpoints.
type SubscriptionHandler struct {
	subscriptions ports.SubscriptionService
	guard         *service.IdempotencyGuard
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptions ports.SubscriptionService, guard *service.IdempotencyGuard) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, guard: guard}
}

// Create handles POST /api/v1/subscriptions.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}
	var req dto.CreateSubscriptionRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	cmd, err := toCreateSubscriptionCommand(c, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	guarded(c, h.guard, guardPayload(c, body), func(ctx context.Context) ([]byte, int, error) {
		sub, err := h.subscriptions.Create(ctx, cmd)
		if err != nil {
			return nil, 0, err
		}
		raw, err := json.Marshal(toSubscriptionResponse(sub))
		return raw, http.StatusCreated, err
	})
}

// Get handles GET /api/v1/subscriptions/:id.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	id, ok := subscriptionIDParam(c)
	if !ok {
		return
	}
	sub, err := h.subscriptions.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSubscriptionResponse(sub))
}

// List handles GET /api/v1/subscriptions.
func (h *SubscriptionHandler) List(c *gin.Context) {
	subs, err := h.subscriptions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		items = append(items, toSubscriptionResponse(&subs[i]))
	}
	response.OK(c, items)
}

// Pause handles POST /api/v1/subscriptions/:id/pause.
func (h *SubscriptionHandler) Pause(c *gin.Context) {
	id, ok := subscriptionIDParam(c)
	if !ok {
		return
	}
	sub, err := h.subscriptions.Pause(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSubscriptionResponse(sub))
}

// Resume handles POST /api/v1/subscriptions/:id/resume.
func (h *SubscriptionHandler) Resume(c *gin.Context) {
	id, ok := subscriptionIDParam(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}
	var req dto.ResumeSubscriptionRequest
	if len(body) > 0 {
		if err := binding.JSON.BindBody(body, &req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}
	var nextBillingAt time.Time
	if req.NextBillingAt != nil {
		t, err := parseTime(*req.NextBillingAt, "next_billing_at")
		if err != nil {
			response.Error(c, err)
			return
		}
		nextBillingAt = t
	}

	sub, err := h.subscriptions.Resume(c.Request.Context(), id, nextBillingAt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSubscriptionResponse(sub))
}

// Cancel handles POST /api/v1/subscriptions/:id/cancel.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, ok := subscriptionIDParam(c)
	if !ok {
		return
	}
	sub, err := h.subscriptions.Cancel(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSubscriptionResponse(sub))
}

// Update handles PATCH /api/v1/subscriptions/:id.
func (h *SubscriptionHandler) Update(c *gin.Context) {
	id, ok := subscriptionIDParam(c)
	if !ok {
		return
	}
	var req dto.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	cmd, err := toUpdateSubscriptionCommand(id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	sub, err := h.subscriptions.Update(c.Request.Context(), cmd)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSubscriptionResponse(sub))
}

// Schedules handles GET /api/v1/subscriptions/:id/schedules.
func (h *SubscriptionHandler) Schedules(c *gin.Context) {
	id, ok := subscriptionIDParam(c)
	if !ok {
		return
	}
	schedules, err := h.subscriptions.Schedules(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.ScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		items = append(items, dto.ScheduleResponse{
			ID:            s.ID.String(),
			AttemptNumber: s.AttemptNumber,
			Status:        string(s.Status),
			ScheduledAt:   s.ScheduledAt.Format(time.RFC3339),
			FailureReason: s.FailureReason,
		})
	}
	response.OK(c, items)
}

// DunningHistory handles GET /api/v1/subscriptions/:id/dunning.
func (h *SubscriptionHandler) DunningHistory(c *gin.Context) {
	id, ok := subscriptionIDParam(c)
	if !ok {
		return
	}
	entries, err := h.subscriptions.DunningHistory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.DunningResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.DunningResponse{
			ID:             e.ID.String(),
			ScheduledAt:    e.ScheduledAt.Format(time.RFC3339),
			Status:         e.Status,
			FailureCode:    e.FailureCode,
			FailureMessage: e.FailureMessage,
		})
	}
	response.OK(c, items)
}

func toCreateSubscriptionCommand(c *gin.Context, req dto.CreateSubscriptionRequest) (ports.CreateSubscriptionCommand, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return ports.CreateSubscriptionCommand{}, apperror.Validation("customer_id must be a UUID")
	}
	money, err := domain.NewMoneyFromString(req.Amount, req.Currency)
	if err != nil {
		return ports.CreateSubscriptionCommand{}, apperror.Validation(err.Error())
	}
	cmd := ports.CreateSubscriptionCommand{
		CustomerID:         customerID,
		PlanCode:           req.PlanCode,
		ClientReference:    req.ClientReference,
		Amount:             money,
		Cycle:              domain.BillingCycle(req.BillingCycle),
		IntervalDays:       req.IntervalDays,
		PaymentMethodToken: req.PaymentMethodToken,
		MaxRetryAttempts:   req.MaxRetryAttempts,
		IdempotencyKey:     c.GetHeader(middleware.HeaderIdempotencyKey),
		CorrelationID:      c.GetString(middleware.CtxCorrelationID),
	}
	if req.TrialEnd != nil {
		t, err := parseTime(*req.TrialEnd, "trial_end")
		if err != nil {
			return ports.CreateSubscriptionCommand{}, err
		}
		cmd.TrialEnd = &t
	}
	if req.FirstBillingAt != nil {
		t, err := parseTime(*req.FirstBillingAt, "first_billing_at")
		if err != nil {
			return ports.CreateSubscriptionCommand{}, err
		}
		cmd.FirstBillingAt = t
	}
	return cmd, nil
}

func toUpdateSubscriptionCommand(id uuid.UUID, req dto.UpdateSubscriptionRequest) (ports.UpdateSubscriptionCommand, error) {
	cmd := ports.UpdateSubscriptionCommand{
		SubscriptionID:     id,
		PlanCode:           req.PlanCode,
		PaymentMethodToken: req.PaymentMethodToken,
		MaxRetryAttempts:   req.MaxRetryAttempts,
		IntervalDays:       req.IntervalDays,
	}
	if req.Amount != nil {
		if req.Currency == nil {
			return ports.UpdateSubscriptionCommand{}, apperror.Validation("currency is required when amount is set")
		}
		money, err := domain.NewMoneyFromString(*req.Amount, *req.Currency)
		if err != nil {
			return ports.UpdateSubscriptionCommand{}, apperror.Validation(err.Error())
		}
		cmd.Amount = &money
	}
	if req.NextBillingAt != nil {
		t, err := parseTime(*req.NextBillingAt, "next_billing_at")
		if err != nil {
			return ports.UpdateSubscriptionCommand{}, err
		}
		cmd.NextBillingAt = &t
	}
	return cmd, nil
}

func subscriptionIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func parseTime(value, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperror.Validation(field + " must be RFC 3339")
	}
	return t.UTC(), nil
}

func toSubscriptionResponse(sub *domain.Subscription) dto.SubscriptionResponse {
	resp := dto.SubscriptionResponse{
		ID:               sub.ID.String(),
		CustomerID:       sub.CustomerID.String(),
		PlanCode:         sub.PlanCode,
		ClientReference:  sub.ClientReference,
		Amount:           sub.Money.Amount.StringFixed(2),
		Currency:         sub.Money.Currency,
		BillingCycle:     string(sub.BillingCycle),
		IntervalDays:     sub.IntervalDays,
		Status:           string(sub.Status),
		NextBillingAt:    sub.NextBillingAt.Format(time.RFC3339),
		RetryCount:       sub.RetryCount,
		MaxRetryAttempts: sub.MaxRetryAttempts,
		CreatedAt:        sub.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        sub.UpdatedAt.Format(time.RFC3339),
	}
	if sub.TrialEnd != nil {
		s := sub.TrialEnd.Format(time.RFC3339)
		resp.TrialEnd = &s
	}
	if sub.DelinquentSince != nil {
		s := sub.DelinquentSince.Format(time.RFC3339)
		resp.DelinquentSince = &s
	}
	return resp
}
