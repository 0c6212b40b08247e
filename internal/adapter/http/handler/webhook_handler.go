package handler

import (
	"regexp"
	"time"

	"cardflow/internal/adapter/http/dto"
	"cardflow/internal/core/domain"
	"cardflow/internal/core/ports"
	"cardflow/pkg/apperror"
	"cardflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// WebhookHandler ingests processor notifications.
type WebhookHandler struct {
	webhooks ports.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhooks ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Authorize.Net signs deliveries with an HMAC-SHA512 of the body.
const headerANetSignature = "X-ANET-Signature"

var anetSignaturePattern = regexp.MustCompile(`^sha512=[0-9a-fA-F]{128}$`)

// Receive handles POST /webhooks/authorizenet. Duplicate deliveries are
// acknowledged with 200 so the processor stops redelivering.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}
	var req dto.WebhookNotification
	if err := binding.JSON.BindBody(body, &req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	signature := c.GetHeader(headerANetSignature)
	if signature != "" && !anetSignaturePattern.MatchString(signature) {
		response.Error(c, apperror.Validation("malformed "+headerANetSignature+" header"))
		return
	}

	event, duplicate, err := h.webhooks.RecordEvent(c.Request.Context(), ports.RecordEventCommand{
		EventID:   req.NotificationID,
		EventType: req.EventType,
		Payload:   body,
		Signature: signature,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := "accepted"
	if duplicate {
		status = "duplicate"
	}
	response.OK(c, dto.WebhookAck{
		EventID:   event.EventID,
		Status:    status,
		Duplicate: duplicate,
	})
}

// GetEvent handles GET /api/v1/webhook-events/:id.
func (h *WebhookHandler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a UUID"))
		return
	}
	event, err := h.webhooks.GetEvent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWebhookEventResponse(event))
}

func toWebhookEventResponse(event *domain.WebhookEvent) dto.WebhookEventResponse {
	resp := dto.WebhookEventResponse{
		ID:            event.ID.String(),
		EventID:       event.EventID,
		EventType:     event.EventType,
		Status:        string(event.ProcessedStatus),
		ReceivedAt:    event.ReceivedAt.Format(time.RFC3339),
		FailureReason: event.FailureReason,
	}
	if event.ProcessedAt != nil {
		s := event.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}
