package domain

import "time"

// State is the conversational state of one platform user.
type State string

const (
	// StateIdle means no input is pending; the next event is routed by intent.
	StateIdle State = "idle"
	// StateAwaitingLeaveReason means the next text message is the reason for
	// a leave request.
	StateAwaitingLeaveReason State = "awaiting_leave_reason"
	// StateAwaitingLocationPick means the next text message picks which bus
	// route to show (users with more than one linked student).
	StateAwaitingLocationPick State = "awaiting_location_pick"
)

// ConversationSession is the per-user conversational state spanning webhook
// deliveries. Keyed by the platform user ID; expires after an inactivity
// window.
type ConversationSession struct {
	ExternalUserID string
	State          State
	// Context carries pending-input data (e.g. which student a leave request
	// is for). Flat strings only; sessions must survive serialization if a
	// store chooses to persist them.
	Context   map[string]string
	UpdatedAt time.Time
}

// Idle reports whether no input is pending.
func (s *ConversationSession) Idle() bool {
	return s == nil || s.State == StateIdle || s.State == ""
}
