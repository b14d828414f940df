package domain

import "time"

// AuditLog represents one recorded identity-link event.
type AuditLog struct {
	ID             string
	ExternalUserID string
	Action         string
	Resource       string
	Metadata       string
	CreatedAt      time.Time
}
