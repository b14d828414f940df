package event

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeBody(t *testing.T) {
	raw := []byte(`{"destination":"U0000","events":[
		{"type":"message","webhookEventId":"ev-1","timestamp":1625665242211,
		 "replyToken":"rt-1","source":{"type":"user","userId":"U1"},
		 "message":{"type":"text","id":"m1","text":"hello"}}
	]}`)

	body, err := DecodeBody(raw)
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if len(body.Events) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(body.Events))
	}
	if body.Events[0].Type != "message" {
		t.Errorf("Type = %q, want message", body.Events[0].Type)
	}
	if body.Events[0].Source.UserID != "U1" {
		t.Errorf("UserID = %q, want U1", body.Events[0].Source.UserID)
	}
}

func TestDecodeBody_EmptyEvents(t *testing.T) {
	body, err := DecodeBody([]byte(`{"destination":"U0000","events":[]}`))
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if len(body.Events) != 0 {
		t.Errorf("len(Events) = %d, want 0", len(body.Events))
	}
}

func TestDecodeBody_Invalid(t *testing.T) {
	if _, err := DecodeBody([]byte("not json")); err == nil {
		t.Fatal("DecodeBody with invalid JSON should return error")
	}
}

func TestNormalize_TextMessage(t *testing.T) {
	raw := RawEvent{
		Type:           "message",
		WebhookEventID: "ev-1",
		Timestamp:      1625665242211,
		ReplyToken:     "rt-1",
		Source:         &RawSource{Type: "user", UserID: "U1"},
		Message:        &RawMessage{Type: "text", ID: "m1", Text: "แจ้งลา"},
	}

	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if ev.Kind != KindMessage {
		t.Errorf("Kind = %q, want %q", ev.Kind, KindMessage)
	}
	if ev.Text != "แจ้งลา" {
		t.Errorf("Text = %q, want แจ้งลา", ev.Text)
	}
	if ev.ExternalUserID != "U1" {
		t.Errorf("ExternalUserID = %q, want U1", ev.ExternalUserID)
	}
	if ev.ReplyToken != "rt-1" {
		t.Errorf("ReplyToken = %q, want rt-1", ev.ReplyToken)
	}
	want := time.UnixMilli(1625665242211).UTC()
	if !ev.ReceivedAt.Equal(want) {
		t.Errorf("ReceivedAt = %v, want %v", ev.ReceivedAt, want)
	}
}

func TestNormalize_Postback(t *testing.T) {
	raw := RawEvent{
		Type:       "postback",
		ReplyToken: "rt-2",
		Source:     &RawSource{Type: "user", UserID: "U1"},
		Postback:   &RawPostback{Data: "action=link&role=parent&id=P-001&code=K7PMQ2XF"},
	}

	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if ev.Kind != KindPostback {
		t.Errorf("Kind = %q, want %q", ev.Kind, KindPostback)
	}
	if ev.Postback.Action != "link" {
		t.Errorf("Action = %q, want link", ev.Postback.Action)
	}
	if ev.Postback.Args["role"] != "parent" || ev.Postback.Args["id"] != "P-001" {
		t.Errorf("Args = %v, want role=parent id=P-001", ev.Postback.Args)
	}
}

func TestNormalize_FollowUnfollow(t *testing.T) {
	for _, tc := range []struct {
		typ  string
		want Kind
	}{
		{"follow", KindFollow},
		{"unfollow", KindUnfollow},
	} {
		ev, err := Normalize(RawEvent{Type: tc.typ, Source: &RawSource{UserID: "U1"}})
		if err != nil {
			t.Fatalf("Normalize(%s): %v", tc.typ, err)
		}
		if ev.Kind != tc.want {
			t.Errorf("Kind = %q, want %q", ev.Kind, tc.want)
		}
	}
}

func TestNormalize_UnsupportedKinds(t *testing.T) {
	testCases := []struct {
		name string
		raw  RawEvent
	}{
		{"sticker message", RawEvent{Type: "message", Source: &RawSource{UserID: "U1"}, Message: &RawMessage{Type: "sticker"}}},
		{"join event", RawEvent{Type: "join", Source: &RawSource{UserID: "U1"}}},
		{"beacon event", RawEvent{Type: "beacon", Source: &RawSource{UserID: "U1"}}},
		{"no source", RawEvent{Type: "message", Message: &RawMessage{Type: "text", Text: "hi"}}},
		{"group source without user", RawEvent{Type: "message", Source: &RawSource{Type: "group"}, Message: &RawMessage{Type: "text"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.raw)
			if !errors.Is(err, ErrUnsupportedEventKind) {
				t.Errorf("err = %v, want ErrUnsupportedEventKind", err)
			}
		})
	}
}

func TestNormalize_PostbackWithoutPayload(t *testing.T) {
	_, err := Normalize(RawEvent{Type: "postback", Source: &RawSource{UserID: "U1"}})
	if !errors.Is(err, ErrMalformedPostback) {
		t.Errorf("err = %v, want ErrMalformedPostback", err)
	}
}

func TestNormalize_Redelivery(t *testing.T) {
	raw := RawEvent{
		Type:            "follow",
		Source:          &RawSource{UserID: "U1"},
		DeliveryContext: &DeliveryContext{IsRedelivery: true},
	}
	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !ev.Redelivery {
		t.Error("Redelivery should be true")
	}
}

func TestParsePostback(t *testing.T) {
	pb, err := ParsePostback("action=leave")
	if err != nil {
		t.Fatalf("ParsePostback: %v", err)
	}
	if pb.Action != "leave" {
		t.Errorf("Action = %q, want leave", pb.Action)
	}
	if len(pb.Args) != 0 {
		t.Errorf("Args = %v, want empty", pb.Args)
	}
}

func TestParsePostback_EscapedValue(t *testing.T) {
	pb, err := ParsePostback("action=leave&reason=%E0%B8%9B%E0%B9%88%E0%B8%A7%E0%B8%A2")
	if err != nil {
		t.Fatalf("ParsePostback: %v", err)
	}
	if pb.Args["reason"] != "ป่วย" {
		t.Errorf("reason = %q, want ป่วย", pb.Args["reason"])
	}
}

func TestParsePostback_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no action", "role=parent"},
		{"empty action", "action="},
		{"bare word", "leave"},
		{"missing key", "=leave"},
		{"duplicate key", "action=leave&action=history"},
		{"bad escape", "action=leave&reason=%ZZ"},
		{"trailing ampersand", "action=leave&"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePostback(tc.data)
			if !errors.Is(err, ErrMalformedPostback) {
				t.Errorf("ParsePostback(%q) err = %v, want ErrMalformedPostback", tc.data, err)
			}
		})
	}
}
