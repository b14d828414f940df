// Package audit records identity-link events (link, unlink, denied attempts)
// to the database for later review by school staff.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"schoolbus-platform/backend/internal/audit/domain"
	auditrepo "schoolbus-platform/backend/internal/audit/repository"
)

// Audited actions and resources. Fixed vocabulary so staff tooling can filter.
const (
	ActionLink       = "link"
	ActionUnlink     = "unlink"
	ActionLinkDenied = "link_denied"

	ResourceIdentityLink = "identity_link"
)

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, externalUserID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, externalUserID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:             uuid.New().String(),
		ExternalUserID: externalUserID,
		Action:         action,
		Resource:       resource,
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to write event action=%s resource=%s: %v", action, resource, err)
	}
}
