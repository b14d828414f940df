// Package event decodes webhook deliveries and normalizes the platform's
// heterogeneous event shapes into a single internal event type.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Kind is the normalized inbound event kind.
type Kind string

const (
	KindMessage  Kind = "message"
	KindPostback Kind = "postback"
	KindFollow   Kind = "follow"
	KindUnfollow Kind = "unfollow"
)

// Sentinel errors for normalization; the dispatcher skips the event and
// continues with the rest of the batch on either.
var (
	// ErrUnsupportedEventKind marks event types the bot does not act on
	// (stickers, joins, beacons, ...). Not a fault; the event is dropped.
	ErrUnsupportedEventKind = errors.New("unsupported event kind")
	// ErrMalformedPostback marks a postback whose data payload does not
	// parse as action=<name>[&k=v...]. Logged and dropped.
	ErrMalformedPostback = errors.New("malformed postback data")
)

// InboundEvent is the uniform internal event consumed by the router.
// Transient: constructed per webhook delivery and discarded after handling.
type InboundEvent struct {
	Kind           Kind
	EventID        string
	ExternalUserID string
	Text           string   // message body, KindMessage only
	Postback       Postback // decoded payload, KindPostback only
	ReplyToken     string
	Redelivery     bool
	ReceivedAt     time.Time
}

// Postback is a decoded postback payload: a required action name plus flat
// string arguments.
type Postback struct {
	Action string
	Args   map[string]string
}

// Wire types for the webhook JSON body.

// Body is the decoded webhook request body: a batch of raw platform events.
type Body struct {
	Destination string     `json:"destination"`
	Events      []RawEvent `json:"events"`
}

// RawEvent is one platform event as delivered on the wire.
type RawEvent struct {
	Type            string           `json:"type"`
	WebhookEventID  string           `json:"webhookEventId"`
	Timestamp       int64            `json:"timestamp"` // ms since epoch
	ReplyToken      string           `json:"replyToken"`
	Source          *RawSource       `json:"source"`
	Message         *RawMessage      `json:"message"`
	Postback        *RawPostback     `json:"postback"`
	DeliveryContext *DeliveryContext `json:"deliveryContext"`
}

// RawSource identifies the sender of a raw event.
type RawSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// RawMessage is the message object of a message event.
type RawMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RawPostback is the postback object of a postback event.
type RawPostback struct {
	Data string `json:"data"`
}

// DeliveryContext flags platform redeliveries of a previously sent event.
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// DecodeBody parses a webhook request body. An empty events array is valid;
// the platform sends verification deliveries with no events.
func DecodeBody(raw []byte) (*Body, error) {
	var body Body
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	return &body, nil
}

// Normalize converts one raw platform event into an InboundEvent.
// Returns ErrUnsupportedEventKind for event types the bot ignores and for
// events without a user sender; ErrMalformedPostback for undecodable
// postback payloads.
func Normalize(raw RawEvent) (*InboundEvent, error) {
	if raw.Source == nil || raw.Source.UserID == "" {
		return nil, fmt.Errorf("%w: no user source", ErrUnsupportedEventKind)
	}

	ev := &InboundEvent{
		EventID:        raw.WebhookEventID,
		ExternalUserID: raw.Source.UserID,
		ReplyToken:     raw.ReplyToken,
		ReceivedAt:     time.UnixMilli(raw.Timestamp).UTC(),
	}
	if raw.DeliveryContext != nil {
		ev.Redelivery = raw.DeliveryContext.IsRedelivery
	}

	switch raw.Type {
	case "message":
		if raw.Message == nil || raw.Message.Type != "text" {
			return nil, fmt.Errorf("%w: non-text message", ErrUnsupportedEventKind)
		}
		ev.Kind = KindMessage
		ev.Text = raw.Message.Text
	case "postback":
		if raw.Postback == nil {
			return nil, fmt.Errorf("%w: postback without payload", ErrMalformedPostback)
		}
		pb, err := ParsePostback(raw.Postback.Data)
		if err != nil {
			return nil, err
		}
		ev.Kind = KindPostback
		ev.Postback = pb
	case "follow":
		ev.Kind = KindFollow
	case "unfollow":
		ev.Kind = KindUnfollow
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEventKind, raw.Type)
	}
	return ev, nil
}

// ParsePostback decodes the flat action=<name>[&k=v...] postback payload.
// The parser is strict: every pair must be k=v, keys must be unique, and an
// "action" key with a non-empty value is required. Any deviation returns
// ErrMalformedPostback — a payload the bot composed itself never deviates,
// so a deviation means tampering or version skew, not user input.
func ParsePostback(data string) (Postback, error) {
	if data == "" {
		return Postback{}, fmt.Errorf("%w: empty data", ErrMalformedPostback)
	}

	args := make(map[string]string)
	for _, pair := range strings.Split(data, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return Postback{}, fmt.Errorf("%w: bad pair %q", ErrMalformedPostback, pair)
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			return Postback{}, fmt.Errorf("%w: bad key %q", ErrMalformedPostback, k)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return Postback{}, fmt.Errorf("%w: bad value for %q", ErrMalformedPostback, key)
		}
		if _, dup := args[key]; dup {
			return Postback{}, fmt.Errorf("%w: duplicate key %q", ErrMalformedPostback, key)
		}
		args[key] = val
	}

	action := args["action"]
	if action == "" {
		return Postback{}, fmt.Errorf("%w: missing action", ErrMalformedPostback)
	}
	delete(args, "action")
	return Postback{Action: action, Args: args}, nil
}
