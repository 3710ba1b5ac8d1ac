package domain

import "errors"

// Failure taxonomy for transfer operations. Services wrap these with context;
// the HTTP handler maps them to status codes with errors.Is.
var (
	// ErrNotFound means the transfer, ticket, or party does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the actor is not authorized for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict means a pending transfer already exists for the ticket, or a
	// concurrent transition won the race.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument means the request is malformed (missing recipient,
	// missing or non-positive resale price).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState means the requested transition is not legal from the
	// transfer's current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrCodeInvalid collapses absent, mismatched, and expired verification
	// codes into one caller-facing failure. The distinction is logged only.
	ErrCodeInvalid = errors.New("verification code is invalid or expired")
)
