package repository

import (
	"context"
	"database/sql"

	"ticket-transfer-service/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit event repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	const q = `
		INSERT INTO audit_events (id, actor_id, action, resource, resource_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.ActorID, e.Action, e.Resource, e.ResourceID, e.Metadata, e.CreatedAt)
	return err
}

// ListByResource returns the audit trail for one resource, oldest first.
func (r *PostgresRepository) ListByResource(ctx context.Context, resource, resourceID string) ([]*domain.Event, error) {
	const q = `
		SELECT id, actor_id, action, resource, resource_id, metadata, created_at
		FROM audit_events WHERE resource = $1 AND resource_id = $2
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, q, resource, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Resource, &e.ResourceID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
