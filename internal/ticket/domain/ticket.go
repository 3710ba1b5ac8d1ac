package domain

import "time"

// Ticket is the transferable asset. Only the owner pointer ever changes here;
// issuance and validity rules beyond "not used" belong to the ticketing system.
type Ticket struct {
	ID        string
	EventName string
	OwnerID   string
	Used      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
