package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskpilot/taskpilot/api/internal/core/domain"
)

// AuditRepository stores credential events through sqlx named queries.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, event *domain.CredentialEvent) error {
	const query = `
		INSERT INTO credential_events (id, owner_id, provider, action, created_at)
		VALUES (:id, :owner_id, :provider, :action, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("failed to record credential event: %w", err)
	}
	return nil
}

// ListByOwner returns newest events first. A limit of zero or less returns all.
func (r *AuditRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.CredentialEvent, error) {
	query := `
		SELECT id, owner_id, provider, action, created_at
		FROM credential_events
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	events := []domain.CredentialEvent{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list credential events: %w", err)
	}
	return events, nil
}
