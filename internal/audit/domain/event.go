package domain

import "time"

// Event is one audit trail entry. Transfers record an event per successful
// side-effecting operation; the trail backs the handshake's non-repudiation.
type Event struct {
	ID         string
	ActorID    string
	Action     string
	Resource   string
	ResourceID string
	Metadata   string
	CreatedAt  time.Time
}
