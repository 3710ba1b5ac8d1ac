package domain

import (
	"fmt"
	"time"

	"ticket-transfer-service/backend/internal/transfer/verification"
)

// codeRule says what a transition edge demands of the verification code.
type codeRule int

const (
	// codeNone: the edge never looks at codes.
	codeNone codeRule = iota
	// codeIfSupplied: a supplied code must validate against the stored one,
	// but acceptance proceeds when no code was ever issued or none is
	// supplied. This preserves the accept/complete asymmetry: accept is the
	// provisional grant, complete is the confirmed receipt.
	codeIfSupplied
	// codeRequired: a live, matching, non-expired code must be supplied.
	codeRequired
)

type edge struct {
	From Status
	To   Status
}

type transitionRule struct {
	Actor Role
	Code  codeRule
}

// transitions is the whole legal transition graph. Every (from, to) pair not
// present here is illegal regardless of actor.
var transitions = map[edge]transitionRule{
	{StatusPending, StatusAccepted}:   {Actor: RoleRecipient, Code: codeIfSupplied},
	{StatusPending, StatusRejected}:   {Actor: RoleRecipient, Code: codeNone},
	{StatusPending, StatusCancelled}:  {Actor: RoleSender, Code: codeNone},
	{StatusAccepted, StatusCompleted}: {Actor: RoleRecipient, Code: codeRequired},
}

// CanTransition decides whether the actor may move the transfer to the
// requested status, checking edge legality, actor role, and the edge's code
// demand, in that order. suppliedCode may be empty. Returns nil when the
// transition is allowed; otherwise one of ErrInvalidState, ErrForbidden, or
// ErrCodeInvalid. Code failures come back as the bare sentinel: absent,
// mismatched, and expired must be indistinguishable to the caller, so the
// reason never rides on the error. Callers that want it for logs run
// verification.Check themselves.
func CanTransition(t *Transfer, actorID, actorEmail string, to Status, suppliedCode string, now time.Time) error {
	rule, ok := transitions[edge{From: t.Status, To: to}]
	if !ok {
		return fmt.Errorf("%w: cannot move %s to %s", ErrInvalidState, t.Status, to)
	}
	if t.RoleOf(actorID, actorEmail) != rule.Actor {
		return fmt.Errorf("%w: transition %s to %s", ErrForbidden, t.Status, to)
	}
	switch rule.Code {
	case codeIfSupplied:
		if t.CodeHash != "" && suppliedCode != "" {
			if verification.Check(t.CodeHash, t.CodeExpiresAt, suppliedCode, now) != verification.ResultOK {
				return ErrCodeInvalid
			}
		}
	case codeRequired:
		if verification.Check(t.CodeHash, t.CodeExpiresAt, suppliedCode, now) != verification.ResultOK {
			return ErrCodeInvalid
		}
	}
	return nil
}

// CanDelete decides whether the actor may hard-delete the transfer record.
// Only the sender may, and only while the transfer is still pending.
func CanDelete(t *Transfer, actorID string) error {
	if actorID != t.SenderID {
		return fmt.Errorf("%w: only the sender may delete a transfer", ErrForbidden)
	}
	if t.Status != StatusPending {
		return fmt.Errorf("%w: cannot delete a %s transfer", ErrInvalidState, t.Status)
	}
	return nil
}

// CanIssueCode decides whether the actor may issue a verification code.
// Only the sender may, and only while the transfer can still move: a code
// issued while pending gates acceptance, one issued after acceptance gates
// completion. Terminal transfers take no codes.
func CanIssueCode(t *Transfer, actorID string) error {
	if actorID != t.SenderID {
		return fmt.Errorf("%w: only the sender may issue a verification code", ErrForbidden)
	}
	if t.Status.Terminal() {
		return fmt.Errorf("%w: cannot issue a code for a %s transfer", ErrInvalidState, t.Status)
	}
	return nil
}
