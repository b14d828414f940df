package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"schoolbus-platform/backend/internal/link/domain"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index on (external_user_id, role) WHERE active.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity link repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ResolveActive returns all active links for the given platform user.
// It returns an error only for database failures; an unknown user yields an empty slice.
func (r *PostgresRepository) ResolveActive(ctx context.Context, externalUserID string) ([]*domain.IdentityLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, external_user_id, role, domain_id, active, linked_at, deactivated_at
		FROM identity_links
		WHERE external_user_id = $1 AND active`, externalUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.IdentityLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateLink deactivates any active link for the (external user, role) pair and
// inserts the new link, in one transaction. If a concurrent transaction commits
// an active link for the same pair between the deactivate and the insert, the
// partial unique index rejects the insert; the whole transaction is retried
// once so the last committed write wins.
func (r *PostgresRepository) CreateLink(ctx context.Context, l *domain.IdentityLink) error {
	err := r.createLinkTx(ctx, l)
	if isUniqueViolation(err) {
		err = r.createLinkTx(ctx, l)
	}
	return err
}

func (r *PostgresRepository) createLinkTx(ctx context.Context, l *domain.IdentityLink) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE identity_links
		SET active = FALSE, deactivated_at = $3
		WHERE external_user_id = $1 AND role = $2 AND active`,
		l.ExternalUserID, string(l.Role), l.LinkedAt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO identity_links (id, external_user_id, role, domain_id, active, linked_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)`,
		l.ID, l.ExternalUserID, string(l.Role), l.DomainID, l.LinkedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// DeactivateLink deactivates the active link for the pair. No rows affected is not an error.
func (r *PostgresRepository) DeactivateLink(ctx context.Context, externalUserID string, role domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE identity_links
		SET active = FALSE, deactivated_at = $3
		WHERE external_user_id = $1 AND role = $2 AND active`,
		externalUserID, string(role), time.Now().UTC())
	return err
}

func scanLink(rows *sql.Rows) (*domain.IdentityLink, error) {
	var (
		l           domain.IdentityLink
		role        string
		deactivated sql.NullTime
	)
	if err := rows.Scan(&l.ID, &l.ExternalUserID, &role, &l.DomainID, &l.Active, &l.LinkedAt, &deactivated); err != nil {
		return nil, err
	}
	l.Role = domain.Role(role)
	if deactivated.Valid {
		l.DeactivatedAt = &deactivated.Time
	}
	return &l, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
