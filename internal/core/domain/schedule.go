package domain

import (
	"time"

	"cardflow/pkg/apperror"

	"github.com/google/uuid"
)

// ScheduleStatus represents the outcome of one billing attempt.
type ScheduleStatus string

const (
	ScheduleStatusPending ScheduleStatus = "PENDING"
	ScheduleStatusSuccess ScheduleStatus = "SUCCESS"
	ScheduleStatusFailed  ScheduleStatus = "FAILED"
	ScheduleStatusSkipped ScheduleStatus = "SKIPPED"
)

// SubscriptionSchedule is one billing attempt (the initial charge or a
// retry). Rows are immutable once they leave PENDING.
type SubscriptionSchedule struct {
	ID             uuid.UUID      `json:"id"`
	SubscriptionID uuid.UUID      `json:"subscription_id"`
	AttemptNumber  int            `json:"attempt_number"`
	Status         ScheduleStatus `json:"status"`
	ScheduledAt    time.Time      `json:"scheduled_at"`
	FailureReason  string         `json:"failure_reason,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewPendingSchedule creates a PENDING billing attempt.
func NewPendingSchedule(subscriptionID uuid.UUID, attemptNumber int, scheduledAt, now time.Time) *SubscriptionSchedule {
	return &SubscriptionSchedule{
		ID:             uuid.New(),
		SubscriptionID: subscriptionID,
		AttemptNumber:  attemptNumber,
		Status:         ScheduleStatusPending,
		ScheduledAt:    scheduledAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// MarkSuccess finalizes the attempt as charged.
func (s *SubscriptionSchedule) MarkSuccess(now time.Time) error {
	return s.finalize(ScheduleStatusSuccess, "", now)
}

// MarkFailure finalizes the attempt with a failure reason.
func (s *SubscriptionSchedule) MarkFailure(reason string, now time.Time) error {
	return s.finalize(ScheduleStatusFailed, reason, now)
}

// MarkSkipped finalizes an attempt that will never run (subscription
// cancelled mid-dunning).
func (s *SubscriptionSchedule) MarkSkipped(now time.Time) error {
	return s.finalize(ScheduleStatusSkipped, "", now)
}

func (s *SubscriptionSchedule) finalize(status ScheduleStatus, reason string, now time.Time) error {
	if s.Status != ScheduleStatusPending {
		return apperror.ErrInvalidState(string(s.Status))
	}
	s.Status = status
	s.FailureReason = reason
	s.UpdatedAt = now
	return nil
}

// DunningEntry is an append-only audit record of a failed recurring charge.
type DunningEntry struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Status         string    `json:"status"`
	FailureCode    string    `json:"failure_code,omitempty"`
	FailureMessage string    `json:"failure_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordDunning creates a dunning trail entry.
func RecordDunning(subscriptionID uuid.UUID, scheduledAt time.Time, status, failureCode, failureMessage string, now time.Time) DunningEntry {
	return DunningEntry{
		ID:             uuid.New(),
		SubscriptionID: subscriptionID,
		ScheduledAt:    scheduledAt,
		Status:         status,
		FailureCode:    failureCode,
		FailureMessage: failureMessage,
		CreatedAt:      now,
	}
}
