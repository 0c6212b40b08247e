package postgres

import (
	"context"
	"errors"
	"fmt"

	"cardflow/internal/core/domain"
	"cardflow/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// Save inserts the order on its first save and otherwise updates it with a
// version compare-and-swap.
func (r *OrderRepo) Save(ctx context.Context, o *domain.PaymentOrder) error {
	if o.Version == 0 {
		query := `INSERT INTO payment_orders
			(id, customer_id, amount, currency, status, correlation_id, request_id, idempotency_key, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)`

		_, err := r.pool.Exec(ctx, query,
			o.ID, o.CustomerID, o.Money.Amount, o.Money.Currency, string(o.Status),
			o.CorrelationID, o.RequestID, o.IdempotencyKey, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.ErrDuplicateRequest()
			}
			return fmt.Errorf("insert payment order: %w", err)
		}
		o.Version = 1
		return nil
	}

	query := `UPDATE payment_orders
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`

	tag, err := r.pool.Exec(ctx, query, string(o.Status), o.UpdatedAt, o.ID, o.Version)
	if err != nil {
		return fmt.Errorf("update payment order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrVersionConflict("payment order")
	}
	o.Version++
	return nil
}

// FindByID fetches an order with its transaction ledger.
func (r *OrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentOrder, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByRequestID fetches an order by the caller-supplied request id.
func (r *OrderRepo) FindByRequestID(ctx context.Context, requestID string) (*domain.PaymentOrder, error) {
	if requestID == "" {
		return nil, nil
	}
	return r.findOne(ctx, `WHERE request_id = $1`, requestID)
}

func (r *OrderRepo) findOne(ctx context.Context, where string, arg any) (*domain.PaymentOrder, error) {
	query := `SELECT id, customer_id, amount, currency, status, correlation_id, request_id, idempotency_key, version, created_at, updated_at
		FROM payment_orders ` + where

	o := &domain.PaymentOrder{}
	var status string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&o.ID, &o.CustomerID, &o.Money.Amount, &o.Money.Currency, &status,
		&o.CorrelationID, &o.RequestID, &o.IdempotencyKey, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment order: %w", err)
	}
	o.Status = domain.PaymentOrderStatus(status)

	transactions, err := r.loadTransactions(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Transactions = transactions
	return o, nil
}

func (r *OrderRepo) loadTransactions(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentTransaction, error) {
	query := `SELECT id, order_id, type, amount, currency, gateway_transaction_id, status, processed_at, response_code, response_message
		FROM payment_transactions WHERE order_id = $1 ORDER BY processed_at, id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order transactions: %w", err)
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
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = domain.PaymentTransactionType(txType)
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
