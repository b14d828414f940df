package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"schoolbus-platform/backend/internal/session/domain"
)

func TestMemoryStore_GetUnknownUserIsIdle(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	sess, err := store.Get(ctx, "U1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.State != domain.StateIdle {
		t.Errorf("State = %q, want idle", sess.State)
	}
	if sess.ExternalUserID != "U1" {
		t.Errorf("ExternalUserID = %q, want U1", sess.ExternalUserID)
	}
	if !sess.Idle() {
		t.Error("fresh session should be idle")
	}
}

func TestMemoryStore_PutThenGet(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	err := store.Put(ctx, &domain.ConversationSession{
		ExternalUserID: "U1",
		State:          domain.StateAwaitingLeaveReason,
		Context:        map[string]string{"student_id": "S-001"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	sess, err := store.Get(ctx, "U1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.State != domain.StateAwaitingLeaveReason {
		t.Errorf("State = %q, want awaiting_leave_reason", sess.State)
	}
	if sess.Context["student_id"] != "S-001" {
		t.Errorf("Context = %v, want student_id=S-001", sess.Context)
	}
	if sess.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be stamped by Put")
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	_ = store.Put(ctx, &domain.ConversationSession{
		ExternalUserID: "U1",
		State:          domain.StateAwaitingLeaveReason,
		Context:        map[string]string{"student_id": "S-001"},
	})

	first, _ := store.Get(ctx, "U1")
	first.State = domain.StateIdle
	first.Context["student_id"] = "mutated"

	second, _ := store.Get(ctx, "U1")
	if second.State != domain.StateAwaitingLeaveReason {
		t.Error("mutating a returned session should not affect the store")
	}
	if second.Context["student_id"] != "S-001" {
		t.Error("mutating a returned context should not affect the store")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	now := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	_ = store.Put(ctx, &domain.ConversationSession{
		ExternalUserID: "U1",
		State:          domain.StateAwaitingLeaveReason,
	})

	// Just inside the window: state survives.
	now = now.Add(10 * time.Minute)
	sess, _ := store.Get(ctx, "U1")
	if sess.State != domain.StateAwaitingLeaveReason {
		t.Errorf("State = %q, want awaiting_leave_reason inside TTL", sess.State)
	}

	// Past the window: fresh idle session.
	now = now.Add(time.Minute)
	sess, _ = store.Get(ctx, "U1")
	if sess.State != domain.StateIdle {
		t.Errorf("State = %q, want idle after expiry", sess.State)
	}
}

func TestMemoryStore_PutRefreshesWindow(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	now := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	_ = store.Put(ctx, &domain.ConversationSession{ExternalUserID: "U1", State: domain.StateAwaitingLeaveReason})

	now = now.Add(8 * time.Minute)
	sess, _ := store.Get(ctx, "U1")
	_ = store.Put(ctx, sess)

	// 8 more minutes: expired relative to the first Put, alive relative to the second.
	now = now.Add(8 * time.Minute)
	sess, _ = store.Get(ctx, "U1")
	if sess.State != domain.StateAwaitingLeaveReason {
		t.Error("Put should refresh the inactivity window")
	}
}

func TestMemoryStore_Reset(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	_ = store.Put(ctx, &domain.ConversationSession{ExternalUserID: "U1", State: domain.StateAwaitingLocationPick})
	if err := store.Reset(ctx, "U1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	sess, _ := store.Get(ctx, "U1")
	if sess.State != domain.StateIdle {
		t.Errorf("State = %q, want idle after Reset", sess.State)
	}

	// Resetting an absent session is a no-op.
	if err := store.Reset(ctx, "U-unknown"); err != nil {
		t.Errorf("Reset unknown user: %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			uid := "U" + string(rune('0'+id))
			_ = store.Put(ctx, &domain.ConversationSession{ExternalUserID: uid, State: domain.StateAwaitingLeaveReason})
		}(i)
		go func(id int) {
			defer wg.Done()
			uid := "U" + string(rune('0'+id))
			_, _ = store.Get(ctx, uid)
		}(i)
	}
	wg.Wait()
}
