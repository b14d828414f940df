// Package session provides the per-user conversation state store. The default
// implementation is in-memory with an inactivity TTL; anything implementing
// Store can be substituted to persist sessions across restarts.
package session

import (
	"context"
	"sync"
	"time"

	"schoolbus-platform/backend/internal/session/domain"
)

// Store holds conversation sessions keyed by platform user ID.
type Store interface {
	// Get returns the session for the user, or a fresh idle session if none
	// exists or the stored one expired.
	Get(ctx context.Context, externalUserID string) (*domain.ConversationSession, error)
	// Put stores the session and refreshes its inactivity window.
	Put(ctx context.Context, s *domain.ConversationSession) error
	// Reset drops the session, returning the user to idle.
	Reset(ctx context.Context, externalUserID string) error
}

// MemoryStore is an in-memory Store implementation with TTL expiry.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]*domain.ConversationSession
	ttl  time.Duration
	nowF func() time.Time
}

// NewMemoryStore returns an in-memory session store whose sessions expire
// after ttl of inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]*domain.ConversationSession),
		ttl:  ttl,
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the store's clock. Test hook for expiry behavior.
func (s *MemoryStore) SetClock(nowF func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowF = nowF
}

// Get returns the user's session, or a fresh idle session if missing or expired.
func (s *MemoryStore) Get(ctx context.Context, externalUserID string) (*domain.ConversationSession, error) {
	s.mu.RLock()
	existing, ok := s.m[externalUserID]
	now := s.nowF()
	s.mu.RUnlock()

	if ok && now.Sub(existing.UpdatedAt) <= s.ttl {
		cp := *existing
		cp.Context = copyContext(existing.Context)
		return &cp, nil
	}
	if ok {
		s.mu.Lock()
		delete(s.m, externalUserID)
		s.mu.Unlock()
	}
	return &domain.ConversationSession{
		ExternalUserID: externalUserID,
		State:          domain.StateIdle,
		UpdatedAt:      now,
	}, nil
}

// Put stores the session and stamps UpdatedAt with the store clock.
func (s *MemoryStore) Put(ctx context.Context, sess *domain.ConversationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.Context = copyContext(sess.Context)
	cp.UpdatedAt = s.nowF()
	s.m[sess.ExternalUserID] = &cp
	return nil
}

// Reset drops the session for the user. Missing session is a no-op.
func (s *MemoryStore) Reset(ctx context.Context, externalUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, externalUserID)
	return nil
}

func copyContext(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
