package postgres

import (
	"context"
	"fmt"

	"cardflow/internal/core/domain"

	"github.com/google/uuid"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger entry. Rows are never updated.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.PaymentTransaction) error {
	query := `INSERT INTO payment_transactions
		(id, order_id, type, amount, currency, gateway_transaction_id, status, processed_at, response_code, response_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.OrderID, string(t.Type), t.Money.Amount, t.Money.Currency,
		t.GatewayTransactionID, t.Status, t.ProcessedAt, t.ResponseCode, t.ResponseMessage,
	)
	if err != nil {
		return fmt.Errorf("insert payment transaction: %w", err)
	}
	return nil
}

// ListByOrderID fetches the ledger for one order, oldest first.
func (r *TransactionRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentTransaction, error) {
	query := `SELECT id, order_id, type, amount, currency, gateway_transaction_id, status, processed_at, response_code, response_message
		FROM payment_transactions WHERE order_id = $1 ORDER BY processed_at, id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payment transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.PaymentTransaction
	for rows.Next() {
		var tx domain.PaymentTransaction
		var txType string
		if err := rows.Scan(
			&tx.ID, &tx.OrderID, &txType, &tx.Money.Amount, &tx.Money.Currency,
			&tx.GatewayTransactionID, &tx.Status, &tx.ProcessedAt,
			&tx.ResponseCode, &tx.ResponseMessage,
		); err != nil {
			return nil, fmt.Errorf("scan payment transaction: %w", err)
		}
		tx.Type = domain.PaymentTransactionType(txType)
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
