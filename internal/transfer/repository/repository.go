package repository

import (
	"context"
	"time"

	"ticket-transfer-service/backend/internal/transfer/domain"
)

// Participation filters transfer listings by the caller's side.
type Participation int

const (
	ParticipationAny Participation = iota
	ParticipationSent
	ParticipationReceived
)

// Repository defines persistence for transfers. Every status write is a
// compare-and-swap against the expected current status: implementations must
// report a conflict when zero rows match, never silently no-op.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Transfer, error)
	GetPendingByTicket(ctx context.Context, ticketID string) (*domain.Transfer, error)
	ListByParticipant(ctx context.Context, partyID, partyEmail string, p Participation) ([]*domain.Transfer, error)
	Create(ctx context.Context, t *domain.Transfer) error
	// Accept moves the transfer from PENDING to ACCEPTED, resolves the
	// recipient to recipientID, stamps completed_at, and moves the ticket's
	// owner, all in one database transaction.
	Accept(ctx context.Context, id, recipientID string, at time.Time) error
	// UpdateStatus moves the transfer from the expected status to the new one.
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) error
	// Complete moves ACCEPTED to COMPLETED, stamps verified, and clears the code.
	Complete(ctx context.Context, id string, at time.Time) error
	// SetCode overwrites the live verification code hash and expiry.
	SetCode(ctx context.Context, id, codeHash string, expiresAt, at time.Time) error
	// Delete hard-removes the transfer, only while still PENDING.
	Delete(ctx context.Context, id string) error
}
