package repository

import (
	"context"

	"schoolbus-platform/backend/internal/link/domain"
)

// Repository defines persistence for identity links.
type Repository interface {
	// ResolveActive returns all active links for the given platform user.
	// An unknown user yields an empty slice, not an error.
	ResolveActive(ctx context.Context, externalUserID string) ([]*domain.IdentityLink, error)
	// CreateLink deactivates any existing active link for the link's
	// (external user, role) pair and inserts the new link as active, as a
	// single transaction. The link must have ID and LinkedAt set.
	CreateLink(ctx context.Context, l *domain.IdentityLink) error
	// DeactivateLink deactivates the active link for the pair. Idempotent;
	// no active link is not an error.
	DeactivateLink(ctx context.Context, externalUserID string, role domain.Role) error
}
