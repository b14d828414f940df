package repository

import (
	"context"

	linkdomain "schoolbus-platform/backend/internal/link/domain"
	"schoolbus-platform/backend/internal/registry/domain"
)

// Repository defines read access to the student/parent/driver registry.
type Repository interface {
	// GetProfile returns the registry record for the given role and domain
	// ID, or nil if no such record exists. Errors are database failures only.
	GetProfile(ctx context.Context, role linkdomain.Role, domainID string) (*domain.Profile, error)
}
