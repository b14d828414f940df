package repository

import (
	"context"
	"database/sql"
	"errors"

	"schoolbus-platform/backend/internal/trip/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a trip repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Student returns the student row, or nil if unknown.
func (r *PostgresRepository) Student(ctx context.Context, domainID string) (*domain.Student, error) {
	var s domain.Student
	err := r.db.QueryRowContext(ctx, `
		SELECT domain_id, name FROM students WHERE domain_id = $1`, domainID).
		Scan(&s.DomainID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// StudentsOfParent returns the students a parent covers, ordered by name.
func (r *PostgresRepository) StudentsOfParent(ctx context.Context, parentDomainID string) ([]*domain.Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.domain_id, s.name
		FROM guardianships g
		JOIN students s ON s.domain_id = g.student_domain_id
		WHERE g.parent_domain_id = $1
		ORDER BY s.name`, parentDomainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Student
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(&s.DomainID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Assignment returns the student's bus assignment with driver details, or nil.
func (r *PostgresRepository) Assignment(ctx context.Context, studentDomainID string) (*domain.BusAssignment, error) {
	var a domain.BusAssignment
	err := r.db.QueryRowContext(ctx, `
		SELECT b.student_domain_id, b.driver_domain_id, d.name, d.contact, b.bus_no
		FROM bus_assignments b
		JOIN drivers d ON d.domain_id = b.driver_domain_id
		WHERE b.student_domain_id = $1`, studentDomainID).
		Scan(&a.StudentDomainID, &a.DriverDomainID, &a.DriverName, &a.DriverContact, &a.BusNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LatestPosition returns the driver's newest position report, or nil.
func (r *PostgresRepository) LatestPosition(ctx context.Context, driverDomainID string) (*domain.Position, error) {
	var p domain.Position
	err := r.db.QueryRowContext(ctx, `
		SELECT driver_domain_id, latitude, longitude, recorded_at
		FROM bus_positions
		WHERE driver_domain_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, driverDomainID).
		Scan(&p.DriverDomainID, &p.Latitude, &p.Longitude, &p.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateLeaveRequest persists a leave request.
func (r *PostgresRepository) CreateLeaveRequest(ctx context.Context, lr *domain.LeaveRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leave_requests (id, student_domain_id, requested_by, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		lr.ID, lr.StudentDomainID, lr.RequestedBy, lr.Reason, lr.CreatedAt)
	return err
}

// RecentLeaveRequests returns the student's newest leave requests.
func (r *PostgresRepository) RecentLeaveRequests(ctx context.Context, studentDomainID string, limit int) ([]*domain.LeaveRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_domain_id, requested_by, reason, created_at
		FROM leave_requests
		WHERE student_domain_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, studentDomainID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.LeaveRequest
	for rows.Next() {
		var lr domain.LeaveRequest
		if err := rows.Scan(&lr.ID, &lr.StudentDomainID, &lr.RequestedBy, &lr.Reason, &lr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &lr)
	}
	return out, rows.Err()
}
