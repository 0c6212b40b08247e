package postgres

import (
	"context"
	"fmt"

	"cardflow/internal/core/domain"

	"github.com/google/uuid"
)

// DunningRepo implements ports.DunningRepository.
type DunningRepo struct {
	pool Pool
}

// NewDunningRepo creates a new DunningRepo.
func NewDunningRepo(pool Pool) *DunningRepo {
	return &DunningRepo{pool: pool}
}

func (r *DunningRepo) Create(ctx context.Context, e *domain.DunningEntry) error {
	query := `INSERT INTO dunning_entries
		(id, subscription_id, scheduled_at, status, failure_code, failure_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.SubscriptionID, e.ScheduledAt, e.Status, e.FailureCode, e.FailureMessage, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dunning entry: %w", err)
	}
	return nil
}

func (r *DunningRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]domain.DunningEntry, error) {
	query := `SELECT id, subscription_id, scheduled_at, status, failure_code, failure_message, created_at
		FROM dunning_entries WHERE subscription_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list dunning entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.DunningEntry
	for rows.Next() {
		var e domain.DunningEntry
		if err := rows.Scan(
			&e.ID, &e.SubscriptionID, &e.ScheduledAt, &e.Status,
			&e.FailureCode, &e.FailureMessage, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan dunning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
