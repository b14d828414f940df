package domain

import (
	linkdomain "schoolbus-platform/backend/internal/link/domain"
)

// Profile is the minimal registry record for a parent, student, or driver.
// The bot reads it for existence checks, link-code verification, and reply
// personalization; it does not own or mutate registry data.
type Profile struct {
	Role         linkdomain.Role
	DomainID     string
	Name         string
	Contact      string
	LinkCodeHash string // bcrypt hash of the code handed out by the school
}
