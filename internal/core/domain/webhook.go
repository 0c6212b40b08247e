package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"cardflow/pkg/apperror"

	"github.com/google/uuid"
)

// ProcessedStatus represents the processing state of an ingested webhook
// event.
type ProcessedStatus string

const (
	WebhookStatusPending    ProcessedStatus = "PENDING"
	WebhookStatusProcessing ProcessedStatus = "PROCESSING"
	WebhookStatusCompleted  ProcessedStatus = "COMPLETED"
	WebhookStatusFailed     ProcessedStatus = "FAILED"
)

// WebhookEvent is a gateway notification persisted for async processing.
// EventID is vendor-assigned and unique; a redelivery returns the existing
// row. Version backs the compare-and-swap that keeps exactly one consumer
// owning the PENDING -> PROCESSING transition.
type WebhookEvent struct {
	ID              uuid.UUID       `json:"id"`
	EventID         string          `json:"event_id"`
	EventType       string          `json:"event_type"`
	Payload         string          `json:"payload"`
	Signature       string          `json:"-"`
	DedupeHash      string          `json:"dedupe_hash"`
	ProcessedStatus ProcessedStatus `json:"processed_status"`
	ReceivedAt      time.Time       `json:"received_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewWebhookEvent creates a PENDING event with a payload fingerprint.
func NewWebhookEvent(eventID, eventType, payload, signature string, receivedAt time.Time) *WebhookEvent {
	return &WebhookEvent{
		ID:              uuid.New(),
		EventID:         eventID,
		EventType:       eventType,
		Payload:         payload,
		Signature:       signature,
		DedupeHash:      DedupeHash(payload),
		ProcessedStatus: WebhookStatusPending,
		ReceivedAt:      receivedAt,
		CreatedAt:       receivedAt,
		UpdatedAt:       receivedAt,
	}
}

// DedupeHash fingerprints a payload for duplicate detection independent of
// the vendor event id.
func DedupeHash(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// MarkProcessing claims the event for a consumer. Only PENDING events can be
// claimed.
func (e *WebhookEvent) MarkProcessing(now time.Time) error {
	if e.ProcessedStatus != WebhookStatusPending {
		return apperror.ErrInvalidState(string(e.ProcessedStatus))
	}
	e.ProcessedStatus = WebhookStatusProcessing
	e.ProcessedAt = &now
	e.UpdatedAt = now
	return nil
}

// MarkCompleted finalizes a claimed event.
func (e *WebhookEvent) MarkCompleted(now time.Time) error {
	if e.ProcessedStatus != WebhookStatusProcessing {
		return apperror.ErrInvalidState(string(e.ProcessedStatus))
	}
	e.ProcessedStatus = WebhookStatusCompleted
	e.ProcessedAt = &now
	e.FailureReason = ""
	e.UpdatedAt = now
	return nil
}

// MarkFailed finalizes a claimed event with a reason. Failed events are not
// retried automatically; the stale sweep re-drives PROCESSING events only.
func (e *WebhookEvent) MarkFailed(reason string, now time.Time) error {
	if e.ProcessedStatus != WebhookStatusProcessing {
		return apperror.ErrInvalidState(string(e.ProcessedStatus))
	}
	e.ProcessedStatus = WebhookStatusFailed
	e.ProcessedAt = &now
	e.FailureReason = reason
	e.UpdatedAt = now
	return nil
}

// Requeue returns a stale PROCESSING event to PENDING so the sweep can
// republish it.
func (e *WebhookEvent) Requeue(now time.Time) error {
	if e.ProcessedStatus != WebhookStatusProcessing {
		return apperror.ErrInvalidState(string(e.ProcessedStatus))
	}
	e.ProcessedStatus = WebhookStatusPending
	e.ProcessedAt = nil
	e.UpdatedAt = now
	return nil
}
