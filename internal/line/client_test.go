package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("token", "")
	if client.AccessToken != "token" {
		t.Errorf("AccessToken = %q, want %q", client.AccessToken, "token")
	}
	if client.BaseURL != "https://api.line.me" {
		t.Errorf("BaseURL = %q, want default", client.BaseURL)
	}
	if client.HTTPClient == nil {
		t.Fatal("HTTPClient should be set")
	}
	if client.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("HTTPClient.Timeout = %v, want %v", client.HTTPClient.Timeout, defaultTimeout)
	}
}

func TestReply_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/v2/bot/message/reply" {
			t.Errorf("path = %q, want /v2/bot/message/reply", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Authorization = %q, want Bearer test-token", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}

		var body struct {
			ReplyToken string    `json:"replyToken"`
			Messages   []Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.ReplyToken != "rt-1" {
			t.Errorf("replyToken = %q, want rt-1", body.ReplyToken)
		}
		if len(body.Messages) != 1 || body.Messages[0].Text != "สวัสดี" {
			t.Errorf("messages = %v, want one text สวัสดี", body.Messages)
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("test-token", server.URL)
	if err := client.Reply(context.Background(), "rt-1", TextMessage("สวัสดี")); err != nil {
		t.Errorf("Reply: %v", err)
	}
}

func TestPush_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/bot/message/push" {
			t.Errorf("path = %q, want /v2/bot/message/push", r.URL.Path)
		}
		var body struct {
			To       string    `json:"to"`
			Messages []Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.To != "U1" {
			t.Errorf("to = %q, want U1", body.To)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("test-token", server.URL)
	if err := client.Push(context.Background(), "U1", TextMessage("รถถึงแล้ว")); err != nil {
		t.Errorf("Push: %v", err)
	}
}

func TestReply_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", server.URL)
	err := client.Reply(context.Background(), "expired", TextMessage("x"))
	if err == nil {
		t.Fatal("Reply with 400 response should return error")
	}
}

func TestReply_MissingToken(t *testing.T) {
	client := NewClient("", "http://unused")
	if err := client.Reply(context.Background(), "rt", TextMessage("x")); err == nil {
		t.Fatal("Reply without access token should return error")
	}
}

func TestReply_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-token", server.URL)
	if err := client.Reply(ctx, "rt", TextMessage("x")); err == nil {
		t.Fatal("Reply with cancelled context should return error")
	}
}
