package postgres

import (
	"context"
	"fmt"

	"cardflow/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Create(ctx context.Context, e *domain.AuditEntry) error {
	query := `INSERT INTO audit_logs
		(id, action, resource_type, resource_id, actor_id, correlation_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, string(e.Action), e.ResourceType, e.ResourceID,
		e.ActorID, e.CorrelationID, e.Detail, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
