package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"ticket-transfer-service/backend/internal/party/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a party repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the party for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Party, error) {
	const q = `SELECT id, email, name, created_at FROM parties WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// GetByEmail returns the party registered with the given contact email, or nil
// if none matches. Emails are matched case-insensitively.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Party, error) {
	const q = `SELECT id, email, name, created_at FROM parties WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))))
}

// Create persists the party. The party must have ID and Email set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Party) error {
	const q = `INSERT INTO parties (id, email, name, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, q, p.ID, strings.ToLower(p.Email), p.Name, p.CreatedAt)
	return err
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*domain.Party, error) {
	var p domain.Party
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
