// Package service coordinates transfer operations: it runs the validation and
// transition rules from the domain package against the repositories, and fans
// out the post-commit side effects (notifications, audit trail, dev code
// store, metrics). All state writes go through the repository's CAS methods;
// the coordinator never retries a lost race, it surfaces the conflict.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ticket-transfer-service/backend/internal/audit"
	"ticket-transfer-service/backend/internal/devcode"
	"ticket-transfer-service/backend/internal/notification"
	partydomain "ticket-transfer-service/backend/internal/party/domain"
	"ticket-transfer-service/backend/internal/telemetry"
	ticketdomain "ticket-transfer-service/backend/internal/ticket/domain"
	"ticket-transfer-service/backend/internal/transfer/domain"
	transferrepo "ticket-transfer-service/backend/internal/transfer/repository"
	"ticket-transfer-service/backend/internal/transfer/verification"
)

// TicketRepo is the minimal ticket repository needed by the coordinator.
// Ownership writes happen inside the transfer repository's Accept transaction.
type TicketRepo interface {
	GetByID(ctx context.Context, id string) (*ticketdomain.Ticket, error)
}

// PartyRepo is the minimal party repository needed by the coordinator.
type PartyRepo interface {
	GetByID(ctx context.Context, id string) (*partydomain.Party, error)
	GetByEmail(ctx context.Context, email string) (*partydomain.Party, error)
}

// Coordinator implements the transfer operations.
type Coordinator struct {
	transfers transferrepo.Repository
	tickets   TicketRepo
	parties   PartyRepo
	notifier  notification.Notifier
	auditLog  audit.Logger
	devCodes  devcode.Store
	metrics   *telemetry.Metrics
	issuer    verification.Issuer
	now       func() time.Time
}

// NewCoordinator returns a Coordinator with the given dependencies. notifier,
// auditLog, devCodes, and metrics may be nil; the corresponding side effects
// are skipped. codeTTL <= 0 falls back to the issuer default.
func NewCoordinator(
	transfers transferrepo.Repository,
	tickets TicketRepo,
	parties PartyRepo,
	notifier notification.Notifier,
	auditLog audit.Logger,
	devCodes devcode.Store,
	metrics *telemetry.Metrics,
	codeTTL time.Duration,
) *Coordinator {
	return &Coordinator{
		transfers: transfers,
		tickets:   tickets,
		parties:   parties,
		notifier:  notifier,
		auditLog:  auditLog,
		devCodes:  devCodes,
		metrics:   metrics,
		issuer:    verification.Issuer{TTL: codeTTL},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and records a new pending transfer. The ticket's ownership
// does not change here; it moves on accept.
func (c *Coordinator) Create(ctx context.Context, senderID string, in CreateInput) (*domain.Transfer, error) {
	ticket, recipient, err := c.validateCreate(ctx, senderID, &in)
	if err != nil {
		return nil, err
	}
	now := c.now()
	t := &domain.Transfer{
		ID:             uuid.New().String(),
		TicketID:       in.TicketID,
		SenderID:       senderID,
		RecipientEmail: in.RecipientEmail,
		Kind:           in.Kind,
		Price:          in.Price,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if recipient != nil {
		t.RecipientID = recipient.ID
		t.RecipientEmail = recipient.Email
	}
	if err := c.transfers.Create(ctx, t); err != nil {
		return nil, err
	}
	c.logEvent(ctx, senderID, "transfer.create", t.ID, string(t.Kind))
	if recipient != nil {
		c.notify(ctx, recipient.ID, notification.KindTransferCreated,
			"Ticket transfer offered",
			fmt.Sprintf("You have been offered a ticket for %s.", ticket.EventName),
			map[string]string{"transferId": t.ID, "ticketId": t.TicketID})
	}
	return t, nil
}

// Get returns the transfer when the caller is one of its parties.
func (c *Coordinator) Get(ctx context.Context, actorID, actorEmail, id string) (*domain.Transfer, error) {
	t, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.RoleOf(actorID, actorEmail) == domain.RoleNone {
		return nil, fmt.Errorf("%w: not a party to this transfer", domain.ErrForbidden)
	}
	return t, nil
}

// List returns the caller's transfers, optionally filtered to one side.
func (c *Coordinator) List(ctx context.Context, actorID, actorEmail string, p transferrepo.Participation) ([]*domain.Transfer, error) {
	return c.transfers.ListByParticipant(ctx, actorID, actorEmail, p)
}

// Accept moves a pending transfer to ACCEPTED and hands the ticket to the
// acting recipient in the same transaction. If a verification code is live
// and the caller supplied one, it must match; with no code in play the
// acceptance is provisional and the completion handshake does the proving.
func (c *Coordinator) Accept(ctx context.Context, actorID, actorEmail, id, suppliedCode string) (*domain.Transfer, error) {
	t, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := c.now()
	if err := domain.CanTransition(t, actorID, actorEmail, domain.StatusAccepted, suppliedCode, now); err != nil {
		if errors.Is(err, domain.ErrCodeInvalid) {
			res := verification.Check(t.CodeHash, t.CodeExpiresAt, suppliedCode, now)
			c.metrics.RecordCodeCheck(ctx, res.String())
			log.Printf("transfer: accept %s: code check %s", id, res)
		}
		return nil, err
	}
	if err := c.transfers.Accept(ctx, id, actorID, now); err != nil {
		return nil, err
	}
	c.metrics.RecordTransition(ctx, string(domain.StatusAccepted))
	c.logEvent(ctx, actorID, "transfer.accept", id, "")
	c.notify(ctx, t.SenderID, notification.KindTransferAccepted,
		"Transfer accepted",
		"Your ticket transfer was accepted.",
		map[string]string{"transferId": id})
	return c.load(ctx, id)
}

// Reject moves a pending transfer to REJECTED. Recipient only.
func (c *Coordinator) Reject(ctx context.Context, actorID, actorEmail, id string) (*domain.Transfer, error) {
	return c.transition(ctx, actorID, actorEmail, id, domain.StatusRejected,
		"transfer.reject", notification.KindTransferRejected,
		"Transfer rejected", "Your ticket transfer was rejected.")
}

// Cancel moves a pending transfer to CANCELLED. Sender only.
func (c *Coordinator) Cancel(ctx context.Context, actorID, actorEmail, id string) (*domain.Transfer, error) {
	t, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CanTransition(t, actorID, actorEmail, domain.StatusCancelled, "", c.now()); err != nil {
		return nil, err
	}
	if err := c.transfers.UpdateStatus(ctx, id, t.Status, domain.StatusCancelled, c.now()); err != nil {
		return nil, err
	}
	c.metrics.RecordTransition(ctx, string(domain.StatusCancelled))
	c.logEvent(ctx, actorID, "transfer.cancel", id, "")
	if t.RecipientID != "" {
		c.notify(ctx, t.RecipientID, notification.KindTransferCancelled,
			"Transfer cancelled",
			"A ticket transfer offered to you was cancelled.",
			map[string]string{"transferId": id})
	}
	return c.load(ctx, id)
}

// Remove hard-deletes a pending transfer. Sender only; accepted and terminal
// transfers stay on record.
func (c *Coordinator) Remove(ctx context.Context, actorID, id string) error {
	t, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	if err := domain.CanDelete(t, actorID); err != nil {
		return err
	}
	if err := c.transfers.Delete(ctx, id); err != nil {
		return err
	}
	c.logEvent(ctx, actorID, "transfer.delete", id, "")
	return nil
}

// IssueVerificationCode mints a fresh code for the transfer, overwriting any
// previous one, and delivers the plain code to the recipient by notification.
// The plain code is never returned to the HTTP caller; in dev code mode it is
// additionally parked in the dev store for retrieval.
func (c *Coordinator) IssueVerificationCode(ctx context.Context, actorID, id string) error {
	t, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	if err := domain.CanIssueCode(t, actorID); err != nil {
		return err
	}
	code, hash, expiresAt, err := c.issuer.Issue()
	if err != nil {
		return err
	}
	if err := c.transfers.SetCode(ctx, id, hash, expiresAt, c.now()); err != nil {
		return err
	}
	if c.devCodes != nil {
		c.devCodes.Put(ctx, id, code, expiresAt)
	}
	c.metrics.RecordCodeIssued(ctx)
	c.logEvent(ctx, actorID, "transfer.issue_code", id, "")
	if t.RecipientID != "" {
		c.notify(ctx, t.RecipientID, notification.KindVerificationCode,
			"Your verification code",
			fmt.Sprintf("Use code %s to confirm your ticket transfer.", code),
			map[string]string{"transferId": id, "code": code})
	}
	return nil
}

// Complete confirms an accepted transfer with a live verification code and
// finalizes the record. Ownership already moved on accept; completion marks
// the handshake proven.
func (c *Coordinator) Complete(ctx context.Context, actorID, actorEmail, id, suppliedCode string) (*domain.Transfer, error) {
	t, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := c.now()
	res := verification.Check(t.CodeHash, t.CodeExpiresAt, suppliedCode, now)
	c.metrics.RecordCodeCheck(ctx, res.String())
	if err := domain.CanTransition(t, actorID, actorEmail, domain.StatusCompleted, suppliedCode, now); err != nil {
		if res != verification.ResultOK {
			log.Printf("transfer: complete %s: code check %s", id, res)
		}
		return nil, err
	}
	if err := c.transfers.Complete(ctx, id, now); err != nil {
		return nil, err
	}
	c.metrics.RecordTransition(ctx, string(domain.StatusCompleted))
	c.logEvent(ctx, actorID, "transfer.complete", id, "")
	c.notify(ctx, t.SenderID, notification.KindTransferCompleted,
		"Transfer completed",
		"Your ticket transfer was confirmed and completed.",
		map[string]string{"transferId": id})
	return c.load(ctx, id)
}

// transition handles the recipient-side pending transitions that share a
// shape: load, rule check, CAS write, side effects, reload.
func (c *Coordinator) transition(
	ctx context.Context,
	actorID, actorEmail, id string,
	to domain.Status,
	action string,
	kind notification.Kind,
	title, message string,
) (*domain.Transfer, error) {
	t, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CanTransition(t, actorID, actorEmail, to, "", c.now()); err != nil {
		return nil, err
	}
	if err := c.transfers.UpdateStatus(ctx, id, t.Status, to, c.now()); err != nil {
		return nil, err
	}
	c.metrics.RecordTransition(ctx, string(to))
	c.logEvent(ctx, actorID, action, id, "")
	c.notify(ctx, t.SenderID, kind, title, message, map[string]string{"transferId": id})
	return c.load(ctx, id)
}

func (c *Coordinator) load(ctx context.Context, id string) (*domain.Transfer, error) {
	t, err := c.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: transfer %s", domain.ErrNotFound, id)
	}
	return t, nil
}

func (c *Coordinator) notify(ctx context.Context, partyID string, kind notification.Kind, title, message string, data map[string]string) {
	notification.SendAsync(c.notifier, ctx, &notification.Notification{
		ID:        uuid.New().String(),
		PartyID:   partyID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		Data:      data,
		CreatedAt: c.now(),
	})
}

func (c *Coordinator) logEvent(ctx context.Context, actorID, action, transferID, metadata string) {
	if c.auditLog == nil {
		return
	}
	c.auditLog.LogEvent(ctx, actorID, action, "transfer", transferID, metadata)
}
