// Package devcode provides an in-memory store for plain verification codes by
// transfer id, used only when dev code mode is enabled (GET /dev/transfers/{id}/code).
package devcode

import (
	"context"
	"sync"
	"time"
)

// Store holds plain verification codes by transfer id for dev-only retrieval.
// Not used in production.
type Store interface {
	// Put stores code for transferID until expiresAt. Used when issuing a
	// verification code in dev mode.
	Put(ctx context.Context, transferID, code string, expiresAt time.Time)
	// Get returns the code for transferID if present and not expired. Returns
	// ok false if missing or expired.
	Get(ctx context.Context, transferID string) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now().UTC,
	}
}

// Put stores code for transferID until expiresAt. A re-issued code overwrites
// the stored one, matching the single-live-code rule.
func (s *MemoryStore) Put(ctx context.Context, transferID, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[transferID] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for transferID if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, transferID string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[transferID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, transferID)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
