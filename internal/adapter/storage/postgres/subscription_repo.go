package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardflow/internal/core/domain"
	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SubscriptionRepo implements ports.SubscriptionRepository.
type SubscriptionRepo struct {
	pool Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepo.
func NewSubscriptionRepo(pool Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, customer_id, plan_code, billing_cycle, interval_days, amount, currency,
	payment_method_token, status, client_reference, trial_end, next_billing_at,
	delinquent_since, retry_count, max_retry_attempts, version, created_at, updated_at`

// Save inserts on first save, otherwise updates with a version
// compare-and-swap.
func (r *SubscriptionRepo) Save(ctx context.Context, s *domain.Subscription) error {
	if s.Version == 0 {
		query := `INSERT INTO subscriptions (` + subscriptionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17)`

		_, err := r.pool.Exec(ctx, query,
			s.ID, s.CustomerID, s.PlanCode, string(s.BillingCycle), s.IntervalDays,
			s.Money.Amount, s.Money.Currency, s.PaymentMethodToken, string(s.Status),
			s.ClientReference, s.TrialEnd, s.NextBillingAt, s.DelinquentSince,
			s.RetryCount, s.MaxRetryAttempts, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.ErrDuplicateSubscription(s.ClientReference)
			}
			return fmt.Errorf("insert subscription: %w", err)
		}
		s.Version = 1
		return nil
	}

	query := `UPDATE subscriptions
		SET plan_code = $1, billing_cycle = $2, interval_days = $3, amount = $4, currency = $5,
			payment_method_token = $6, status = $7, trial_end = $8, next_billing_at = $9,
			delinquent_since = $10, retry_count = $11, max_retry_attempts = $12,
			version = version + 1, updated_at = $13
		WHERE id = $14 AND version = $15`

	tag, err := r.pool.Exec(ctx, query,
		s.PlanCode, string(s.BillingCycle), s.IntervalDays, s.Money.Amount, s.Money.Currency,
		s.PaymentMethodToken, string(s.Status), s.TrialEnd, s.NextBillingAt,
		s.DelinquentSince, s.RetryCount, s.MaxRetryAttempts, s.UpdatedAt, s.ID, s.Version,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrVersionConflict("subscription")
	}
	s.Version++
	return nil
}

func (r *SubscriptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *SubscriptionRepo) FindByClientReference(ctx context.Context, clientReference string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE client_reference = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, clientReference))
}

// FindDue lists subscriptions whose billing anchor has passed, oldest first.
func (r *SubscriptionRepo) FindDue(ctx context.Context, statuses []domain.SubscriptionStatus, threshold time.Time) ([]domain.Subscription, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE status = ANY($1) AND next_billing_at <= $2
		ORDER BY next_billing_at`

	rows, err := r.pool.Query(ctx, query, names, threshold)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	return r.scanMany(rows)
}

func (r *SubscriptionRepo) List(ctx context.Context) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return r.scanMany(rows)
}

func (r *SubscriptionRepo) scanOne(row pgx.Row) (*domain.Subscription, error) {
	s := &domain.Subscription{}
	var cycle, status string
	err := row.Scan(
		&s.ID, &s.CustomerID, &s.PlanCode, &cycle, &s.IntervalDays,
		&s.Money.Amount, &s.Money.Currency, &s.PaymentMethodToken, &status,
		&s.ClientReference, &s.TrialEnd, &s.NextBillingAt,
		&s.DelinquentSince, &s.RetryCount, &s.MaxRetryAttempts, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	s.BillingCycle = domain.BillingCycle(cycle)
	s.Status = domain.SubscriptionStatus(status)
	return s, nil
}

func (r *SubscriptionRepo) scanMany(rows pgx.Rows) ([]domain.Subscription, error) {
	defer rows.Close()
	var subs []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		var cycle, status string
		if err := rows.Scan(
			&s.ID, &s.CustomerID, &s.PlanCode, &cycle, &s.IntervalDays,
			&s.Money.Amount, &s.Money.Currency, &s.PaymentMethodToken, &status,
			&s.ClientReference, &s.TrialEnd, &s.NextBillingAt,
			&s.DelinquentSince, &s.RetryCount, &s.MaxRetryAttempts, &s.Version, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.BillingCycle = domain.BillingCycle(cycle)
		s.Status = domain.SubscriptionStatus(status)
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
