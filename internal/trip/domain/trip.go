// Package domain holds the bus-trip entities the bot reads and writes:
// students and their bus assignments, driver position reports, and leave
// requests.
package domain

import "time"

// Student is the minimal student record the bot needs for replies.
type Student struct {
	DomainID string
	Name     string
}

// BusAssignment links a student to the driver whose bus they ride.
type BusAssignment struct {
	StudentDomainID string
	DriverDomainID  string
	DriverName      string
	DriverContact   string
	BusNo           string
}

// Position is one location report from the driver app.
type Position struct {
	DriverDomainID string
	Latitude       float64
	Longitude      float64
	RecordedAt     time.Time
}

// LeaveRequest records that a student will not ride on a given day.
type LeaveRequest struct {
	ID              string
	StudentDomainID string
	RequestedBy     string // platform user ID of the requester
	Reason          string
	CreatedAt       time.Time
}
