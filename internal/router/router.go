// Package router maps normalized events to intents. Routing is a pure
// function of (event, resolved links, session state) so tables of inputs can
// be tested deterministically.
package router

import (
	"strings"

	"schoolbus-platform/backend/internal/event"
	linkdomain "schoolbus-platform/backend/internal/link/domain"
	sessiondomain "schoolbus-platform/backend/internal/session/domain"
)

// Intent is the action a user's event maps to.
type Intent string

const (
	IntentHistory  Intent = "history"
	IntentLeave    Intent = "leave"
	IntentLocation Intent = "location"
	IntentContact  Intent = "contact"
	IntentLink     Intent = "link"
	IntentUnlink   Intent = "unlink"
	// IntentRequireLink is forced when an unlinked user asks for a domain
	// action; no domain action may execute without an active link.
	IntentRequireLink Intent = "require_link"
	// IntentPendingInput marks a text message that answers the session's
	// pending input (e.g. the leave reason). Args["input"] holds the text.
	IntentPendingInput Intent = "pending_input"
	// IntentFollow greets a user who just added the bot.
	IntentFollow Intent = "follow"
	// IntentUnfollow is bookkeeping only; the user can no longer be replied to.
	IntentUnfollow Intent = "unfollow"
	IntentFallback Intent = "fallback"
)

// RoutedIntent is the router's output: which action is owed, for whom.
type RoutedIntent struct {
	Kind         Intent
	Links        []*linkdomain.IdentityLink
	SessionState sessiondomain.State
	Args         map[string]string
}

// postbackActions is the fixed postback action table.
var postbackActions = map[string]Intent{
	"history":  IntentHistory,
	"leave":    IntentLeave,
	"location": IntentLocation,
	"contact":  IntentContact,
	"link":     IntentLink,
	"unlink":   IntentUnlink,
}

// phrase holds one text-match rule. Prefix rules also match the bare phrase.
type phrase struct {
	text   string
	prefix bool
	intent Intent
}

// phrases is the fixed text phrase table, checked in order.
var phrases = []phrase{
	{text: "แจ้งลา", intent: IntentLeave},
	{text: "ประวัติ", prefix: true, intent: IntentHistory},
	{text: "รถอยู่ไหน", intent: IntentLocation},
	{text: "ตำแหน่งรถ", intent: IntentLocation},
	{text: "ติดต่อคนขับ", intent: IntentContact},
	{text: "ยกเลิกผูกบัญชี", intent: IntentUnlink},
	{text: "ผูกบัญชี", prefix: true, intent: IntentLink},
	{text: "link", prefix: true, intent: IntentLink},
	{text: "unlink", intent: IntentUnlink},
}

// Route maps one normalized event to a RoutedIntent. Pure function: no side
// effects, identical inputs yield identical outputs.
func Route(ev *event.InboundEvent, links []*linkdomain.IdentityLink, state sessiondomain.State) RoutedIntent {
	out := RoutedIntent{Kind: IntentFallback, Links: links, SessionState: state}

	switch ev.Kind {
	case event.KindFollow:
		out.Kind = IntentFollow
		return out
	case event.KindUnfollow:
		out.Kind = IntentUnfollow
		return out
	}

	// A pending-input session claims the next text message outright; it is
	// the answer to the pending prompt, not a new command.
	if pending(state) && ev.Kind == event.KindMessage {
		out.Kind = IntentPendingInput
		out.Args = map[string]string{"input": ev.Text}
		return out
	}

	switch ev.Kind {
	case event.KindPostback:
		if intent, ok := postbackActions[ev.Postback.Action]; ok {
			out.Kind = intent
			out.Args = ev.Postback.Args
		}
	case event.KindMessage:
		out.Kind, out.Args = matchPhrase(ev.Text)
	}

	// Unlinked users get linking instructions instead of any domain action.
	if len(links) == 0 && requiresLink(out.Kind) {
		out.Kind = IntentRequireLink
		out.Args = nil
	}
	return out
}

func pending(state sessiondomain.State) bool {
	return state != "" && state != sessiondomain.StateIdle
}

func requiresLink(intent Intent) bool {
	switch intent {
	case IntentHistory, IntentLeave, IntentLocation, IntentContact:
		return true
	}
	return false
}

// matchPhrase matches message text against the phrase table. Link phrases
// with trailing tokens ("link parent P-001 K7PMQ2XF") carry the tokens as
// args for the guided linking flow.
func matchPhrase(text string) (Intent, map[string]string) {
	trimmed := strings.TrimSpace(text)
	for _, p := range phrases {
		switch {
		case trimmed == p.text:
			return p.intent, nil
		case p.prefix && strings.HasPrefix(trimmed, p.text+" "):
			if p.intent == IntentLink {
				return IntentLink, linkArgs(strings.TrimPrefix(trimmed, p.text+" "))
			}
			return p.intent, nil
		}
	}
	return IntentFallback, nil
}

// linkArgs parses "<role> <id> <code>" from a link phrase tail. Incomplete
// tails yield nil args; the coordinator then replies with instructions.
func linkArgs(tail string) map[string]string {
	fields := strings.Fields(tail)
	if len(fields) != 3 {
		return nil
	}
	return map[string]string{"role": fields[0], "id": fields[1], "code": fields[2]}
}
