package postgres

import (
	"context"
	"errors"
	"fmt"

	"cardflow/internal/core/domain"
	"cardflow/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create inserts a write-once record. A second insert under the same key
// surfaces as DUPLICATE_REQUEST.
func (r *IdempotencyRepo) Create(ctx context.Context, record *domain.IdempotencyRecord) error {
	query := `INSERT INTO idempotency_records (idempotency_key, request_hash, response_payload, status_code, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		record.IdempotencyKey, record.RequestHash, record.ResponsePayload,
		record.StatusCode, record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrDuplicateRequest()
		}
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}

func (r *IdempotencyRepo) Find(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT idempotency_key, request_hash, response_payload, status_code, created_at
		FROM idempotency_records WHERE idempotency_key = $1`

	record := &domain.IdempotencyRecord{}
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&record.IdempotencyKey, &record.RequestHash, &record.ResponsePayload,
		&record.StatusCode, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	return record, nil
}
