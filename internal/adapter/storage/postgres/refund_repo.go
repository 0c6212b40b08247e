package postgres

import (
	"context"
	"fmt"

	"cardflow/internal/core/domain"

	"github.com/google/uuid"
)

// RefundRepo implements ports.RefundRepository.
type RefundRepo struct {
	pool Pool
}

// NewRefundRepo creates a new RefundRepo.
func NewRefundRepo(pool Pool) *RefundRepo {
	return &RefundRepo{pool: pool}
}

func (r *RefundRepo) Create(ctx context.Context, refund *domain.Refund) error {
	query := `INSERT INTO refunds
		(id, transaction_id, amount, currency, status, gateway_transaction_id, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		refund.ID, refund.TransactionID, refund.Money.Amount, refund.Money.Currency,
		refund.Status, refund.GatewayTransactionID, refund.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

func (r *RefundRepo) ListByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]domain.Refund, error) {
	query := `SELECT id, transaction_id, amount, currency, status, gateway_transaction_id, processed_at
		FROM refunds WHERE transaction_id = $1 ORDER BY processed_at`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []domain.Refund
	for rows.Next() {
		var refund domain.Refund
		if err := rows.Scan(
			&refund.ID, &refund.TransactionID, &refund.Money.Amount, &refund.Money.Currency,
			&refund.Status, &refund.GatewayTransactionID, &refund.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan refund: %w", err)
		}
		refunds = append(refunds, refund)
	}
	return refunds, rows.Err()
}
