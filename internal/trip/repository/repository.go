// Package repository provides persistence for bus-trip data.
package repository

import (
	"context"

	"schoolbus-platform/backend/internal/trip/domain"
)

// Repository is the trip data access layer. Lookups return (nil, nil) or an
// empty slice for missing rows; errors mean database failure.
type Repository interface {
	// Student returns the student with the given domain ID, or nil if unknown.
	Student(ctx context.Context, domainID string) (*domain.Student, error)
	// StudentsOfParent returns the students a parent covers, ordered by name.
	StudentsOfParent(ctx context.Context, parentDomainID string) ([]*domain.Student, error)
	// Assignment returns the student's bus assignment, or nil if unassigned.
	Assignment(ctx context.Context, studentDomainID string) (*domain.BusAssignment, error)
	// LatestPosition returns the driver's most recent position report, or nil
	// if the driver has never reported.
	LatestPosition(ctx context.Context, driverDomainID string) (*domain.Position, error)
	// CreateLeaveRequest persists a leave request.
	CreateLeaveRequest(ctx context.Context, lr *domain.LeaveRequest) error
	// RecentLeaveRequests returns the student's newest leave requests, newest
	// first, at most limit rows.
	RecentLeaveRequests(ctx context.Context, studentDomainID string, limit int) ([]*domain.LeaveRequest, error)
}
