package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	linkdomain "schoolbus-platform/backend/internal/link/domain"
	"schoolbus-platform/backend/internal/registry/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a registry repository reading the parents,
// students, and drivers tables.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetProfile returns the registry record for role and domainID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetProfile(ctx context.Context, role linkdomain.Role, domainID string) (*domain.Profile, error) {
	table, err := tableForRole(role)
	if err != nil {
		return nil, err
	}

	p := domain.Profile{Role: role}
	err = r.db.QueryRowContext(ctx,
		// table comes from the fixed role mapping below, never from input.
		fmt.Sprintf(`SELECT domain_id, name, contact, link_code_hash FROM %s WHERE domain_id = $1`, table),
		domainID,
	).Scan(&p.DomainID, &p.Name, &p.Contact, &p.LinkCodeHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func tableForRole(role linkdomain.Role) (string, error) {
	switch role {
	case linkdomain.RoleParent:
		return "parents", nil
	case linkdomain.RoleStudent:
		return "students", nil
	case linkdomain.RoleDriver:
		return "drivers", nil
	}
	return "", fmt.Errorf("registry: unknown role %q", role)
}
