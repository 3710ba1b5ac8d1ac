// Package audit records who did what to which transfer. Writing the trail is
// best-effort and never affects the outcome of the triggering operation.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"ticket-transfer-service/backend/internal/audit/domain"
	auditrepo "ticket-transfer-service/backend/internal/audit/repository"
)

// Logger writes a single audit event with explicit action/resource. Used by
// the transfer coordinator's side-effecting code paths.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type Logger interface {
	LogEvent(ctx context.Context, actorID, action, resource, resourceID, metadata string)
}

// RepoLogger implements Logger using the audit repository.
type RepoLogger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Logger that persists to repo.
func NewLogger(repo auditrepo.Repository) *RepoLogger {
	return &RepoLogger{repo: repo}
}

// LogEvent writes one audit event. Best-effort: errors are logged and not returned.
func (l *RepoLogger) LogEvent(ctx context.Context, actorID, action, resource, resourceID, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	e := &domain.Event{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
