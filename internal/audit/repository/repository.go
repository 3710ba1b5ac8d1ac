package repository

import (
	"context"

	"ticket-transfer-service/backend/internal/audit/domain"
)

// Repository defines persistence for audit events.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	ListByResource(ctx context.Context, resource, resourceID string) ([]*domain.Event, error)
}
