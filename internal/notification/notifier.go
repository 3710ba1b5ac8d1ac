// Package notification carries "notify party X with payload Y" out of the
// transfer core. Emission is best-effort and decoupled from the transactional
// path; delivery mechanics live in the worker.
package notification

import (
	"context"
	"time"
)

// Kind labels the event a notification reports.
type Kind string

const (
	KindTransferCreated   Kind = "transfer_created"
	KindTransferAccepted  Kind = "transfer_accepted"
	KindTransferRejected  Kind = "transfer_rejected"
	KindTransferCancelled Kind = "transfer_cancelled"
	KindTransferCompleted Kind = "transfer_completed"
	KindVerificationCode  Kind = "verification_code"
)

// Notification is the payload handed to the sink. Data may carry the
// verification code; it must never be logged.
type Notification struct {
	ID        string            `json:"id"`
	PartyID   string            `json:"partyId"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Kind      Kind              `json:"kind"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Notifier delivers a notification payload. Implementations are best-effort;
// callers log and ignore errors.
type Notifier interface {
	Send(ctx context.Context, n *Notification) error
}
