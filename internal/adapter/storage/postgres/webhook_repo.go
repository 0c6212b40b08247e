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

// WebhookEventRepo implements ports.WebhookEventRepository.
type WebhookEventRepo struct {
	pool Pool
}

// NewWebhookEventRepo creates a new WebhookEventRepo.
func NewWebhookEventRepo(pool Pool) *WebhookEventRepo {
	return &WebhookEventRepo{pool: pool}
}

const webhookColumns = `id, event_id, event_type, payload, signature, dedupe_hash, processed_status,
	received_at, processed_at, failure_reason, version, created_at, updated_at`

// Save inserts on first save, otherwise updates with a version
// compare-and-swap. The unique event_id surfaces as DUPLICATE_REQUEST.
func (r *WebhookEventRepo) Save(ctx context.Context, e *domain.WebhookEvent) error {
	if e.Version == 0 {
		query := `INSERT INTO webhook_events (` + webhookColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)`

		_, err := r.pool.Exec(ctx, query,
			e.ID, e.EventID, e.EventType, e.Payload, e.Signature, e.DedupeHash,
			string(e.ProcessedStatus), e.ReceivedAt, e.ProcessedAt, e.FailureReason,
			e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.ErrDuplicateRequest()
			}
			return fmt.Errorf("insert webhook event: %w", err)
		}
		e.Version = 1
		return nil
	}

	query := `UPDATE webhook_events
		SET processed_status = $1, processed_at = $2, failure_reason = $3,
			version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`

	tag, err := r.pool.Exec(ctx, query,
		string(e.ProcessedStatus), e.ProcessedAt, e.FailureReason, e.UpdatedAt, e.ID, e.Version,
	)
	if err != nil {
		return fmt.Errorf("update webhook event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrVersionConflict("webhook event")
	}
	e.Version++
	return nil
}

func (r *WebhookEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.WebhookEvent, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_events WHERE id = $1`
	return scanWebhookEvent(r.pool.QueryRow(ctx, query, id))
}

func (r *WebhookEventRepo) FindByEventID(ctx context.Context, eventID string) (*domain.WebhookEvent, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_events WHERE event_id = $1`
	return scanWebhookEvent(r.pool.QueryRow(ctx, query, eventID))
}

func (r *WebhookEventRepo) FindFirstPending(ctx context.Context) (*domain.WebhookEvent, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_events
		WHERE processed_status = $1 ORDER BY received_at LIMIT 1`
	return scanWebhookEvent(r.pool.QueryRow(ctx, query, string(domain.WebhookStatusPending)))
}

// FindStaleProcessing lists claimed events whose claim is older than before.
func (r *WebhookEventRepo) FindStaleProcessing(ctx context.Context, before time.Time) ([]domain.WebhookEvent, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_events
		WHERE processed_status = $1 AND processed_at < $2
		ORDER BY received_at`

	rows, err := r.pool.Query(ctx, query, string(domain.WebhookStatusProcessing), before)
	if err != nil {
		return nil, fmt.Errorf("list stale webhook events: %w", err)
	}
	defer rows.Close()

	var events []domain.WebhookEvent
	for rows.Next() {
		var e domain.WebhookEvent
		var status string
		if err := rows.Scan(
			&e.ID, &e.EventID, &e.EventType, &e.Payload, &e.Signature, &e.DedupeHash,
			&status, &e.ReceivedAt, &e.ProcessedAt, &e.FailureReason,
			&e.Version, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook event: %w", err)
		}
		e.ProcessedStatus = domain.ProcessedStatus(status)
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanWebhookEvent(row pgx.Row) (*domain.WebhookEvent, error) {
	e := &domain.WebhookEvent{}
	var status string
	err := row.Scan(
		&e.ID, &e.EventID, &e.EventType, &e.Payload, &e.Signature, &e.DedupeHash,
		&status, &e.ReceivedAt, &e.ProcessedAt, &e.FailureReason,
		&e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	e.ProcessedStatus = domain.ProcessedStatus(status)
	return e, nil
}
