package domain

import "time"

// Party is a registered account capable of sending or receiving a transfer.
// Registration and credentials live in the external auth system.
type Party struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}
