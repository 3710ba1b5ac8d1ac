// Package domain holds the transfer entity, its status graph, and the
// transition rules. The legality of every status change lives here, in one
// table consulted by one function.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes a gratis handoff from a priced resale.
type Kind string

const (
	KindHandoff Kind = "HANDOFF"
	KindResale  Kind = "RESALE"
)

// Valid reports whether k is a known transfer kind.
func (k Kind) Valid() bool {
	return k == KindHandoff || k == KindResale
}

// Status is the lifecycle state of a transfer.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// Transfer is a handoff or resale of one ticket between two parties.
// Ownership of the ticket moves exactly once, on accept; complete is the
// code-gated confirmation that finalizes the record.
type Transfer struct {
	ID             string
	TicketID       string
	SenderID       string
	RecipientID    string // empty until the recipient is resolved to a registered party
	RecipientEmail string
	Kind           Kind
	Price          *decimal.Decimal // set iff Kind == KindResale
	Status         Status
	CodeHash       string // sha256 hex of the live verification code; empty when none issued
	CodeExpiresAt  *time.Time
	Verified       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// Role is the part an actor plays on a transfer.
type Role int

const (
	RoleNone Role = iota
	RoleSender
	RoleRecipient
)

// RoleOf returns the actor's role on the transfer. A party whose id matches
// the resolved recipient, or whose email matches an unresolved recipient
// contact, acts as recipient.
func (t *Transfer) RoleOf(actorID, actorEmail string) Role {
	if actorID == t.SenderID {
		return RoleSender
	}
	if t.RecipientID != "" && actorID == t.RecipientID {
		return RoleRecipient
	}
	if t.RecipientID == "" && t.RecipientEmail != "" && actorEmail != "" && actorEmail == t.RecipientEmail {
		return RoleRecipient
	}
	return RoleNone
}

// HasLiveCode reports whether a verification code is issued and not expired at now.
func (t *Transfer) HasLiveCode(now time.Time) bool {
	return t.CodeHash != "" && t.CodeExpiresAt != nil && !now.After(*t.CodeExpiresAt)
}
