package domain

import "time"

// IdentityLink associates a messaging-platform user with a domain record
// (parent, student, or driver). Links are deactivated, never deleted; at most
// one link per (external user, role) is active at a time.
type IdentityLink struct {
	ID             string
	ExternalUserID string
	Role           Role
	DomainID       string
	Active         bool
	LinkedAt       time.Time
	DeactivatedAt  *time.Time // nil while active
}

// Role is the domain role a link grants.
type Role string

const (
	RoleParent  Role = "parent"
	RoleStudent Role = "student"
	RoleDriver  Role = "driver"
)

// ParseRole maps a wire string to a Role. Returns false for unknown values.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleParent, RoleStudent, RoleDriver:
		return Role(s), true
	}
	return "", false
}
