package repository

import (
	"context"

	"ticket-transfer-service/backend/internal/party/domain"
)

// Repository defines persistence for parties.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Party, error)
	GetByEmail(ctx context.Context, email string) (*domain.Party, error)
	Create(ctx context.Context, p *domain.Party) error
}
