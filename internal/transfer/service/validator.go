package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	partydomain "ticket-transfer-service/backend/internal/party/domain"
	ticketdomain "ticket-transfer-service/backend/internal/ticket/domain"
	"ticket-transfer-service/backend/internal/transfer/domain"
)

// CreateInput carries the caller-supplied fields of a new transfer request.
// Exactly one of RecipientID and RecipientEmail is required; Price is
// required for resales and forbidden for handoffs.
type CreateInput struct {
	TicketID       string
	RecipientID    string
	RecipientEmail string
	Kind           domain.Kind
	Price          *decimal.Decimal
}

// validateCreate runs the creation checks in a fixed order so callers get a
// stable failure for any given bad request: ticket existence and usability,
// sender ownership, single-pending exclusivity, price shape, recipient
// resolution. It returns the loaded ticket and the resolved recipient (nil
// when the recipient is an unregistered email contact).
func (c *Coordinator) validateCreate(ctx context.Context, senderID string, in *CreateInput) (*ticketdomain.Ticket, *partydomain.Party, error) {
	ticket, err := c.tickets.GetByID(ctx, in.TicketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket == nil {
		return nil, nil, fmt.Errorf("%w: ticket %s", domain.ErrNotFound, in.TicketID)
	}
	if ticket.Used {
		return nil, nil, fmt.Errorf("%w: ticket %s has been used", domain.ErrInvalidState, in.TicketID)
	}
	if ticket.OwnerID != senderID {
		return nil, nil, fmt.Errorf("%w: only the ticket owner may start a transfer", domain.ErrForbidden)
	}

	pending, err := c.transfers.GetPendingByTicket(ctx, in.TicketID)
	if err != nil {
		return nil, nil, err
	}
	if pending != nil {
		return nil, nil, fmt.Errorf("%w: a pending transfer already exists for ticket %s", domain.ErrConflict, in.TicketID)
	}

	if !in.Kind.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown transfer kind %q", domain.ErrInvalidArgument, in.Kind)
	}
	switch in.Kind {
	case domain.KindResale:
		if in.Price == nil || !in.Price.IsPositive() {
			return nil, nil, fmt.Errorf("%w: resale requires a positive price", domain.ErrInvalidArgument)
		}
	case domain.KindHandoff:
		if in.Price != nil {
			return nil, nil, fmt.Errorf("%w: handoff must not carry a price", domain.ErrInvalidArgument)
		}
	}

	recipient, err := c.resolveRecipient(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	if recipient != nil && recipient.ID == senderID {
		return nil, nil, fmt.Errorf("%w: cannot transfer a ticket to yourself", domain.ErrInvalidArgument)
	}
	return ticket, recipient, nil
}

// resolveRecipient turns the recipient fields into a party where possible.
// An explicit recipient id must exist. An email is resolved opportunistically:
// when no party has it, the transfer stays addressed to the email and the
// recipient resolves at accept time.
func (c *Coordinator) resolveRecipient(ctx context.Context, in *CreateInput) (*partydomain.Party, error) {
	in.RecipientID = strings.TrimSpace(in.RecipientID)
	in.RecipientEmail = strings.TrimSpace(strings.ToLower(in.RecipientEmail))
	switch {
	case in.RecipientID != "":
		p, err := c.parties.GetByID(ctx, in.RecipientID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("%w: recipient %s", domain.ErrNotFound, in.RecipientID)
		}
		return p, nil
	case in.RecipientEmail != "":
		p, err := c.parties.GetByEmail(ctx, in.RecipientEmail)
		if err != nil {
			return nil, err
		}
		// p may be nil: unregistered contact, resolved on accept.
		return p, nil
	default:
		return nil, fmt.Errorf("%w: a recipient id or email is required", domain.ErrInvalidArgument)
	}
}
