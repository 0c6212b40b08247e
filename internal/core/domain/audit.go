package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies the command being audited.
type AuditAction string

const (
	AuditActionPurchase           AuditAction = "PURCHASE"
	AuditActionAuthorize          AuditAction = "AUTHORIZE"
	AuditActionCapture            AuditAction = "CAPTURE"
	AuditActionCancel             AuditAction = "CANCEL"
	AuditActionRefund             AuditAction = "REFUND"
	AuditActionSubscriptionCreate AuditAction = "SUBSCRIPTION_CREATE"
	AuditActionSubscriptionCancel AuditAction = "SUBSCRIPTION_CANCEL"
)

// AuditEntry is an append-only record of a money-movement command.
type AuditEntry struct {
	ID            uuid.UUID   `json:"id"`
	Action        AuditAction `json:"action"`
	ResourceType  string      `json:"resource_type"`
	ResourceID    string      `json:"resource_id"`
	ActorID       *uuid.UUID  `json:"actor_id,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Detail        string      `json:"detail,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
