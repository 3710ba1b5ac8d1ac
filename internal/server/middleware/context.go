package middleware

import "context"

type contextKey struct{ name string }

var partyIDKey = contextKey{"party_id"}

// WithPartyID returns a context with the authenticated party id set.
// Handlers read it via GetPartyID.
func WithPartyID(ctx context.Context, partyID string) context.Context {
	return context.WithValue(ctx, partyIDKey, partyID)
}

// GetPartyID returns the party id from context and true if set; otherwise "", false.
func GetPartyID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(partyIDKey).(string)
	return v, ok
}
