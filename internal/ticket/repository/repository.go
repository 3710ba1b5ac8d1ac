package repository

import (
	"context"

	"ticket-transfer-service/backend/internal/ticket/domain"
)

// Repository defines persistence for tickets. Ownership changes are not part
// of this surface: they ride inside the transfer repository's Accept
// transaction so the status flip and the owner flip commit together.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Create(ctx context.Context, t *domain.Ticket) error
}
