package repository

import (
	"context"
	"database/sql"
	"errors"

	"ticket-transfer-service/backend/internal/ticket/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a ticket repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the ticket for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const q = `
		SELECT id, event_name, owner_id, used, created_at, updated_at
		FROM tickets WHERE id = $1
	`
	var t domain.Ticket
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.EventName, &t.OwnerID, &t.Used, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Create persists the ticket. The ticket must have ID and OwnerID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Ticket) error {
	const q = `
		INSERT INTO tickets (id, event_name, owner_id, used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.EventName, t.OwnerID, t.Used, t.CreatedAt, t.UpdatedAt)
	return err
}
