package repository

import (
	"context"
	"database/sql"

	"schoolbus-platform/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log to the database. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, external_user_id, action, resource, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.ExternalUserID, a.Action, a.Resource, meta, a.CreatedAt)
	return err
}

// ListRecent returns up to limit audit logs, newest first.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, external_user_id, action, resource, metadata, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a    domain.AuditLog
			meta sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.ExternalUserID, &a.Action, &a.Resource, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Metadata = meta.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
