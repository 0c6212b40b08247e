package postgres

import (
	"context"
	"fmt"

	"cardflow/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ScheduleRepo implements ports.ScheduleRepository.
type ScheduleRepo struct {
	pool Pool
}

// NewScheduleRepo creates a new ScheduleRepo.
func NewScheduleRepo(pool Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// Save upserts by id. Attempts are small rows and the status guard lives in
// the domain type, so the write is a plain upsert.
func (r *ScheduleRepo) Save(ctx context.Context, s *domain.SubscriptionSchedule) error {
	query := `INSERT INTO subscription_schedules
		(id, subscription_id, attempt_number, status, scheduled_at, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, failure_reason = EXCLUDED.failure_reason, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.SubscriptionID, s.AttemptNumber, string(s.Status),
		s.ScheduledAt, s.FailureReason, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save subscription schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) FindPendingBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionSchedule, error) {
	query := `SELECT id, subscription_id, attempt_number, status, scheduled_at, failure_reason, created_at, updated_at
		FROM subscription_schedules
		WHERE subscription_id = $1 AND status = $2
		ORDER BY scheduled_at`
	rows, err := r.pool.Query(ctx, query, subscriptionID, string(domain.ScheduleStatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending schedules: %w", err)
	}
	return scanSchedules(rows)
}

func (r *ScheduleRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]domain.SubscriptionSchedule, error) {
	query := `SELECT id, subscription_id, attempt_number, status, scheduled_at, failure_reason, created_at, updated_at
		FROM subscription_schedules
		WHERE subscription_id = $1
		ORDER BY scheduled_at`
	rows, err := r.pool.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return scanSchedules(rows)
}

func scanSchedules(rows pgx.Rows) ([]domain.SubscriptionSchedule, error) {
	defer rows.Close()
	var schedules []domain.SubscriptionSchedule
	for rows.Next() {
		var s domain.SubscriptionSchedule
		var status string
		if err := rows.Scan(
			&s.ID, &s.SubscriptionID, &s.AttemptNumber, &status,
			&s.ScheduledAt, &s.FailureReason, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		s.Status = domain.ScheduleStatus(status)
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}
