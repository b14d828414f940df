// Package coordinator executes routed intents: it owns session transitions
// and decides which reply is owed. Data lookups and message formatting are
// delegated to the Composer; delivery to the Messenger.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"schoolbus-platform/backend/internal/event"
	linkdomain "schoolbus-platform/backend/internal/link/domain"
	linkservice "schoolbus-platform/backend/internal/link/service"
	"schoolbus-platform/backend/internal/line"
	registrydomain "schoolbus-platform/backend/internal/registry/domain"
	"schoolbus-platform/backend/internal/router"
	"schoolbus-platform/backend/internal/session"
	sessiondomain "schoolbus-platform/backend/internal/session/domain"
)

// User-facing reply texts. Composition of data-bearing replies (history,
// location, ...) is delegated to the Composer; these are the fixed ones.
const (
	msgRequireLink = "กรุณาผูกบัญชีก่อนใช้งาน พิมพ์ link <role> <รหัสประจำตัว> <รหัสผูกบัญชี> เช่น link parent P-001 K7PMQ2XF"
	msgLinkHowTo   = "พิมพ์ link <role> <รหัสประจำตัว> <รหัสผูกบัญชี> โดย role คือ parent, student หรือ driver"
	msgWelcome     = "สวัสดีค่ะ ระบบรถโรงเรียนยินดีต้อนรับ " + msgLinkHowTo
	msgHelp        = "เลือกเมนูด้านล่าง หรือพิมพ์ แจ้งลา / รถอยู่ไหน / ประวัติ / ติดต่อคนขับ"
	msgLeavePrompt = "กรุณาพิมพ์เหตุผลการลา"
	msgLocPrompt   = "ต้องการดูตำแหน่งรถของนักเรียนคนใด กรุณาพิมพ์ชื่อ"
	msgLinkFailed  = "ผูกบัญชีไม่สำเร็จ กรุณาตรวจสอบรหัสแล้วลองใหม่"
	msgLinked      = "ผูกบัญชีสำเร็จ ยินดีต้อนรับคุณ %s"
	msgUnlinked    = "ยกเลิกการผูกบัญชีเรียบร้อยแล้ว"
	msgTryLater    = "ขออภัย ระบบขัดข้องชั่วคราว กรุณาลองใหม่อีกครั้ง"
)

// sessionContextStudent keys the student a pending leave request is for.
const sessionContextStudent = "student_id"

// Composer delegates reply content to the external collaborator that owns
// bus and attendance data. Implementations must bound their own lookups.
type Composer interface {
	// HistoryText returns the trip history reply for the identity.
	HistoryText(ctx context.Context, links []*linkdomain.IdentityLink) (string, error)
	// LocationText returns the live bus location reply. pick names the
	// student when the identity covers more than one; empty otherwise.
	LocationText(ctx context.Context, links []*linkdomain.IdentityLink, pick string) (string, error)
	// ContactText returns the driver contact reply.
	ContactText(ctx context.Context, links []*linkdomain.IdentityLink) (string, error)
	// StudentChoices returns the students the identity covers, for the
	// location pick prompt.
	StudentChoices(ctx context.Context, links []*linkdomain.IdentityLink) ([]string, error)
	// RecordLeave records a leave request and returns the confirmation text.
	RecordLeave(ctx context.Context, links []*linkdomain.IdentityLink, studentID, reason string) (string, error)
}

// LinkManager is the minimal link service surface the coordinator needs.
type LinkManager interface {
	Link(ctx context.Context, externalUserID string, role linkdomain.Role, domainID, code string) (*registrydomain.Profile, error)
	Unlink(ctx context.Context, externalUserID string, role linkdomain.Role) error
}

// Coordinator executes RoutedIntents against session state. Per-user
// serialization is the caller's responsibility (the webhook dispatcher holds
// the user lock across resolve, route, and Handle).
type Coordinator struct {
	sessions  session.Store
	links     LinkManager
	composer  Composer
	messenger line.Messenger
}

// New returns a Coordinator with the given dependencies.
func New(sessions session.Store, links LinkManager, composer Composer, messenger line.Messenger) *Coordinator {
	return &Coordinator{sessions: sessions, links: links, composer: composer, messenger: messenger}
}

// Handle executes one routed intent. The session transition is persisted
// before any external effect, so a failed reply or lookup never leaves the
// session ambiguous: at most one transition happens per event. Returns an
// error only when the session store fails; everything else becomes a
// user-facing reply or a log line.
func (c *Coordinator) Handle(ctx context.Context, ev *event.InboundEvent, ri router.RoutedIntent, sess *sessiondomain.ConversationSession) error {
	switch ri.Kind {
	case router.IntentRequireLink:
		c.reply(ctx, ev, msgRequireLink)
	case router.IntentFollow:
		c.reply(ctx, ev, msgWelcome)
	case router.IntentUnfollow:
		// No reply token exists; just drop conversational state.
		return c.sessions.Reset(ctx, ev.ExternalUserID)
	case router.IntentFallback:
		c.reply(ctx, ev, msgHelp)
	case router.IntentLink:
		c.handleLink(ctx, ev, ri)
	case router.IntentUnlink:
		c.handleUnlink(ctx, ev, ri)
	case router.IntentHistory:
		c.composeAndReply(ctx, ev, func() (string, error) {
			return c.composer.HistoryText(ctx, ri.Links)
		})
	case router.IntentContact:
		c.composeAndReply(ctx, ev, func() (string, error) {
			return c.composer.ContactText(ctx, ri.Links)
		})
	case router.IntentLocation:
		return c.handleLocation(ctx, ev, ri, sess)
	case router.IntentLeave:
		return c.handleLeave(ctx, ev, ri, sess)
	case router.IntentPendingInput:
		return c.handlePendingInput(ctx, ev, ri, sess)
	default:
		c.reply(ctx, ev, msgHelp)
	}
	return nil
}

// handleLeave prompts for the leave reason, transitioning the session first.
func (c *Coordinator) handleLeave(ctx context.Context, ev *event.InboundEvent, ri router.RoutedIntent, sess *sessiondomain.ConversationSession) error {
	sess.State = sessiondomain.StateAwaitingLeaveReason
	sess.Context = map[string]string{}
	if student := ri.Args["student"]; student != "" {
		sess.Context[sessionContextStudent] = student
	}
	if err := c.sessions.Put(ctx, sess); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	c.reply(ctx, ev, msgLeavePrompt)
	return nil
}

// handleLocation answers directly for single-student identities and
// transitions to a pick state otherwise.
func (c *Coordinator) handleLocation(ctx context.Context, ev *event.InboundEvent, ri router.RoutedIntent, sess *sessiondomain.ConversationSession) error {
	choices, err := c.composer.StudentChoices(ctx, ri.Links)
	if err != nil {
		log.Printf("coordinator: student choices for %s: %v", ev.ExternalUserID, err)
		c.reply(ctx, ev, msgTryLater)
		return nil
	}
	if len(choices) > 1 {
		sess.State = sessiondomain.StateAwaitingLocationPick
		sess.Context = nil
		if err := c.sessions.Put(ctx, sess); err != nil {
			return fmt.Errorf("session store: %w", err)
		}
		c.reply(ctx, ev, msgLocPrompt+"\n"+strings.Join(choices, "\n"))
		return nil
	}
	c.composeAndReply(ctx, ev, func() (string, error) {
		return c.composer.LocationText(ctx, ri.Links, "")
	})
	return nil
}

// handlePendingInput consumes the text answer to whichever input the session
// is waiting on. The transition back to idle is committed before the
// external effect; a failed record never corrupts session state, the user
// just re-initiates.
func (c *Coordinator) handlePendingInput(ctx context.Context, ev *event.InboundEvent, ri router.RoutedIntent, sess *sessiondomain.ConversationSession) error {
	input := ri.Args["input"]
	pendingState := sess.State
	studentID := sess.Context[sessionContextStudent]

	if err := c.sessions.Reset(ctx, ev.ExternalUserID); err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	switch pendingState {
	case sessiondomain.StateAwaitingLeaveReason:
		c.composeAndReply(ctx, ev, func() (string, error) {
			return c.composer.RecordLeave(ctx, ri.Links, studentID, input)
		})
	case sessiondomain.StateAwaitingLocationPick:
		c.composeAndReply(ctx, ev, func() (string, error) {
			return c.composer.LocationText(ctx, ri.Links, input)
		})
	default:
		c.reply(ctx, ev, msgHelp)
	}
	return nil
}

func (c *Coordinator) handleLink(ctx context.Context, ev *event.InboundEvent, ri router.RoutedIntent) {
	role, hasRole := linkdomain.ParseRole(ri.Args["role"])
	domainID := ri.Args["id"]
	code := ri.Args["code"]
	if !hasRole || domainID == "" || code == "" {
		c.reply(ctx, ev, msgLinkHowTo)
		return
	}

	profile, err := c.links.Link(ctx, ev.ExternalUserID, role, domainID, code)
	switch {
	case err == nil:
		c.reply(ctx, ev, fmt.Sprintf(msgLinked, profile.Name))
	case errors.Is(err, linkservice.ErrDomainIDNotFound),
		errors.Is(err, linkservice.ErrLinkCodeMismatch),
		errors.Is(err, linkservice.ErrUnknownRole):
		c.reply(ctx, ev, msgLinkFailed)
	default:
		log.Printf("coordinator: link %s as %s: %v", ev.ExternalUserID, role, err)
		c.reply(ctx, ev, msgTryLater)
	}
}

func (c *Coordinator) handleUnlink(ctx context.Context, ev *event.InboundEvent, ri router.RoutedIntent) {
	roles := make([]linkdomain.Role, 0, len(ri.Links))
	if role, ok := linkdomain.ParseRole(ri.Args["role"]); ok {
		roles = append(roles, role)
	} else {
		for _, l := range ri.Links {
			roles = append(roles, l.Role)
		}
	}

	for _, role := range roles {
		if err := c.links.Unlink(ctx, ev.ExternalUserID, role); err != nil {
			log.Printf("coordinator: unlink %s role %s: %v", ev.ExternalUserID, role, err)
			c.reply(ctx, ev, msgTryLater)
			return
		}
	}
	c.reply(ctx, ev, msgUnlinked)
}

// composeAndReply runs a composition and replies with its text, or with the
// generic try-later message when the collaborator fails or times out.
func (c *Coordinator) composeAndReply(ctx context.Context, ev *event.InboundEvent, compose func() (string, error)) {
	text, err := compose()
	if err != nil {
		log.Printf("coordinator: compose reply for %s: %v", ev.ExternalUserID, err)
		text = msgTryLater
	}
	c.reply(ctx, ev, text)
}

// reply delivers fire-and-forget: failures are logged, never propagated.
// Replies are notifications, not transactional state.
func (c *Coordinator) reply(ctx context.Context, ev *event.InboundEvent, text string) {
	if ev.ReplyToken == "" {
		return
	}
	if err := c.messenger.Reply(ctx, ev.ReplyToken, line.TextMessage(text)); err != nil {
		log.Printf("coordinator: reply to %s: %v", ev.ExternalUserID, err)
	}
}
