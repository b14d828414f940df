package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schoolbus-platform/backend/internal/audit"
	linkdomain "schoolbus-platform/backend/internal/link/domain"
	registrydomain "schoolbus-platform/backend/internal/registry/domain"
	"schoolbus-platform/backend/internal/security"
)

// Sentinel errors for the link service; the coordinator maps them to
// user-facing replies.
var (
	ErrUnknownRole         = errors.New("unknown role")
	ErrDomainIDNotFound    = errors.New("domain id not found in registry")
	ErrLinkCodeMismatch    = errors.New("link code does not match")
	ErrRegistryUnavailable = errors.New("registry unavailable")
)

// LinkRepo is the minimal link repository needed by the link service.
type LinkRepo interface {
	ResolveActive(ctx context.Context, externalUserID string) ([]*linkdomain.IdentityLink, error)
	CreateLink(ctx context.Context, l *linkdomain.IdentityLink) error
	DeactivateLink(ctx context.Context, externalUserID string, role linkdomain.Role) error
}

// RegistryRepo is the minimal registry lookup needed by the link service.
type RegistryRepo interface {
	GetProfile(ctx context.Context, role linkdomain.Role, domainID string) (*registrydomain.Profile, error)
}

// LinkService implements account linking: resolve, link with registry and
// code verification, and unlink.
type LinkService struct {
	links           LinkRepo
	registry        RegistryRepo
	hasher          *security.LinkCodeHasher
	auditLogger     audit.AuditLogger
	registryTimeout time.Duration
	nowF            func() time.Time
}

// NewLinkService returns a LinkService with the given dependencies.
// registryTimeout bounds every registry lookup; auditLogger may be nil.
func NewLinkService(
	links LinkRepo,
	registry RegistryRepo,
	hasher *security.LinkCodeHasher,
	auditLogger audit.AuditLogger,
	registryTimeout time.Duration,
) *LinkService {
	return &LinkService{
		links:           links,
		registry:        registry,
		hasher:          hasher,
		auditLogger:     auditLogger,
		registryTimeout: registryTimeout,
		nowF:            func() time.Time { return time.Now().UTC() },
	}
}

// Resolve returns all active links for the platform user. An unlinked user
// yields an empty slice, not an error.
func (s *LinkService) Resolve(ctx context.Context, externalUserID string) ([]*linkdomain.IdentityLink, error) {
	return s.links.ResolveActive(ctx, externalUserID)
}

// Link verifies domainID and code against the registry, then creates an
// active link for (externalUserID, role), superseding any existing one.
// Returns the registry profile so the caller can personalize the reply.
//
// Errors: ErrUnknownRole for a role outside the fixed set;
// ErrDomainIDNotFound when the registry has no such record;
// ErrLinkCodeMismatch when the code does not verify;
// ErrRegistryUnavailable when the registry lookup fails or times out.
func (s *LinkService) Link(ctx context.Context, externalUserID string, role linkdomain.Role, domainID, code string) (*registrydomain.Profile, error) {
	if _, ok := linkdomain.ParseRole(string(role)); !ok {
		return nil, ErrUnknownRole
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.registryTimeout)
	defer cancel()
	profile, err := s.registry.GetProfile(lookupCtx, role, domainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if profile == nil {
		s.logAudit(ctx, externalUserID, audit.ActionLinkDenied, fmt.Sprintf("role=%s domain_id=%s reason=not_found", role, domainID))
		return nil, ErrDomainIDNotFound
	}

	if err := s.hasher.Compare(profile.LinkCodeHash, code); err != nil {
		s.logAudit(ctx, externalUserID, audit.ActionLinkDenied, fmt.Sprintf("role=%s domain_id=%s reason=code_mismatch", role, domainID))
		return nil, ErrLinkCodeMismatch
	}

	l := &linkdomain.IdentityLink{
		ID:             uuid.New().String(),
		ExternalUserID: externalUserID,
		Role:           role,
		DomainID:       domainID,
		Active:         true,
		LinkedAt:       s.nowF(),
	}
	if err := s.links.CreateLink(ctx, l); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}

	s.logAudit(ctx, externalUserID, audit.ActionLink, fmt.Sprintf("role=%s domain_id=%s", role, domainID))
	return profile, nil
}

// Unlink deactivates the active link for (externalUserID, role). Idempotent;
// unlinking an already-unlinked pair is a no-op.
func (s *LinkService) Unlink(ctx context.Context, externalUserID string, role linkdomain.Role) error {
	if _, ok := linkdomain.ParseRole(string(role)); !ok {
		return ErrUnknownRole
	}
	if err := s.links.DeactivateLink(ctx, externalUserID, role); err != nil {
		return fmt.Errorf("deactivate link: %w", err)
	}
	s.logAudit(ctx, externalUserID, audit.ActionUnlink, fmt.Sprintf("role=%s", role))
	return nil
}

func (s *LinkService) logAudit(ctx context.Context, externalUserID, action, metadata string) {
	if s.auditLogger != nil {
		s.auditLogger.LogEvent(ctx, externalUserID, action, audit.ResourceIdentityLink, metadata)
	}
}
