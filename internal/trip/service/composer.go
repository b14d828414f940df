// Package service composes user-facing replies from bus-trip data. It
// implements the coordinator's Composer interface.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	linkdomain "schoolbus-platform/backend/internal/link/domain"
	"schoolbus-platform/backend/internal/trip/domain"
)

// historyLimit caps the leave requests shown per student.
const historyLimit = 5

// TripRepo is the trip data surface the composer needs.
type TripRepo interface {
	Student(ctx context.Context, domainID string) (*domain.Student, error)
	StudentsOfParent(ctx context.Context, parentDomainID string) ([]*domain.Student, error)
	Assignment(ctx context.Context, studentDomainID string) (*domain.BusAssignment, error)
	LatestPosition(ctx context.Context, driverDomainID string) (*domain.Position, error)
	CreateLeaveRequest(ctx context.Context, lr *domain.LeaveRequest) error
	RecentLeaveRequests(ctx context.Context, studentDomainID string, limit int) ([]*domain.LeaveRequest, error)
}

// Composer answers history, location, contact, and leave requests for the
// students an identity covers.
type Composer struct {
	trips TripRepo
	nowF  func() time.Time
}

// NewComposer returns a Composer backed by the given trip repository.
func NewComposer(trips TripRepo) *Composer {
	return &Composer{
		trips: trips,
		nowF:  func() time.Time { return time.Now().UTC() },
	}
}

// students resolves the identity's links to the students they cover:
// a student link is the student themselves, a parent link covers all the
// parent's registered students. Driver links carry no students.
func (c *Composer) students(ctx context.Context, links []*linkdomain.IdentityLink) ([]*domain.Student, error) {
	seen := make(map[string]bool)
	var out []*domain.Student
	add := func(s *domain.Student) {
		if s != nil && !seen[s.DomainID] {
			seen[s.DomainID] = true
			out = append(out, s)
		}
	}

	for _, l := range links {
		switch l.Role {
		case linkdomain.RoleStudent:
			s, err := c.trips.Student(ctx, l.DomainID)
			if err != nil {
				return nil, err
			}
			add(s)
		case linkdomain.RoleParent:
			kids, err := c.trips.StudentsOfParent(ctx, l.DomainID)
			if err != nil {
				return nil, err
			}
			for _, s := range kids {
				add(s)
			}
		}
	}
	return out, nil
}

// pickStudent narrows the covered students to the one named by pick (domain
// ID or name). Empty pick with a single student selects it.
func pickStudent(students []*domain.Student, pick string) *domain.Student {
	if pick == "" {
		if len(students) == 1 {
			return students[0]
		}
		return nil
	}
	pick = strings.TrimSpace(pick)
	for _, s := range students {
		if s.DomainID == pick || s.Name == pick {
			return s
		}
	}
	for _, s := range students {
		if strings.Contains(s.Name, pick) {
			return s
		}
	}
	return nil
}

// StudentChoices returns the names of the students the identity covers.
func (c *Composer) StudentChoices(ctx context.Context, links []*linkdomain.IdentityLink) ([]string, error) {
	students, err := c.students(ctx, links)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(students))
	for _, s := range students {
		names = append(names, s.Name)
	}
	return names, nil
}

// LocationText returns the latest bus position for the picked student.
func (c *Composer) LocationText(ctx context.Context, links []*linkdomain.IdentityLink, pick string) (string, error) {
	students, err := c.students(ctx, links)
	if err != nil {
		return "", err
	}
	if len(students) == 0 {
		return "ไม่พบข้อมูลนักเรียนในบัญชีนี้", nil
	}
	s := pickStudent(students, pick)
	if s == nil {
		return "ไม่พบนักเรียนชื่อ " + pick + " กรุณาลองใหม่", nil
	}

	a, err := c.trips.Assignment(ctx, s.DomainID)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "ยังไม่มีการจัดรถให้ " + s.Name, nil
	}
	p, err := c.trips.LatestPosition(ctx, a.DriverDomainID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "ยังไม่มีข้อมูลตำแหน่งรถ " + a.BusNo + " ในขณะนี้", nil
	}
	return fmt.Sprintf("รถ %s ของ %s อยู่ที่ https://maps.google.com/?q=%f,%f (อัปเดต %s)",
		a.BusNo, s.Name, p.Latitude, p.Longitude, p.RecordedAt.Format("15:04")), nil
}

// ContactText returns driver contact lines for every covered student.
func (c *Composer) ContactText(ctx context.Context, links []*linkdomain.IdentityLink) (string, error) {
	students, err := c.students(ctx, links)
	if err != nil {
		return "", err
	}
	if len(students) == 0 {
		return "ไม่พบข้อมูลนักเรียนในบัญชีนี้", nil
	}

	var lines []string
	for _, s := range students {
		a, err := c.trips.Assignment(ctx, s.DomainID)
		if err != nil {
			return "", err
		}
		if a == nil {
			lines = append(lines, s.Name+": ยังไม่มีการจัดรถ")
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: คนขับ %s โทร %s (รถ %s)", s.Name, a.DriverName, a.DriverContact, a.BusNo))
	}
	return strings.Join(lines, "\n"), nil
}

// HistoryText returns recent leave requests per covered student.
func (c *Composer) HistoryText(ctx context.Context, links []*linkdomain.IdentityLink) (string, error) {
	students, err := c.students(ctx, links)
	if err != nil {
		return "", err
	}
	if len(students) == 0 {
		return "ไม่พบข้อมูลนักเรียนในบัญชีนี้", nil
	}

	var lines []string
	for _, s := range students {
		requests, err := c.trips.RecentLeaveRequests(ctx, s.DomainID, historyLimit)
		if err != nil {
			return "", err
		}
		if len(requests) == 0 {
			lines = append(lines, s.Name+": ไม่มีประวัติการลา")
			continue
		}
		lines = append(lines, s.Name+":")
		for _, lr := range requests {
			lines = append(lines, fmt.Sprintf("  %s ลา: %s", lr.CreatedAt.Format("02/01"), lr.Reason))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// RecordLeave persists a leave request for the picked student and returns
// the confirmation text. An ambiguous pick returns guidance instead of
// recording.
func (c *Composer) RecordLeave(ctx context.Context, links []*linkdomain.IdentityLink, studentID, reason string) (string, error) {
	students, err := c.students(ctx, links)
	if err != nil {
		return "", err
	}
	if len(students) == 0 {
		return "ไม่พบข้อมูลนักเรียนในบัญชีนี้", nil
	}
	s := pickStudent(students, studentID)
	if s == nil {
		return "มีนักเรียนหลายคนในบัญชีนี้ กรุณาแจ้งลาผ่านเมนูของนักเรียนแต่ละคน", nil
	}

	requestedBy := ""
	if len(links) > 0 {
		requestedBy = links[0].ExternalUserID
	}
	lr := &domain.LeaveRequest{
		ID:              uuid.New().String(),
		StudentDomainID: s.DomainID,
		RequestedBy:     requestedBy,
		Reason:          reason,
		CreatedAt:       c.nowF(),
	}
	if err := c.trips.CreateLeaveRequest(ctx, lr); err != nil {
		return "", err
	}
	return fmt.Sprintf("บันทึกการลาของ %s เรียบร้อยแล้ว (เหตุผล: %s)", s.Name, reason), nil
}
