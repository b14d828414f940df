// Package line sends replies and pushes through the LINE Messaging API.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// Message is one outbound message object. Only text messages are composed by
// the bot; richer types come from collaborators that format their own payloads.
type Message struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextMessage returns a plain text Message.
func TextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

// Messenger is the outbound capability the coordinator depends on. Delivery
// is best-effort fire-and-forget; any backend implementing this is
// substitutable.
type Messenger interface {
	// Reply sends messages against a reply token from an inbound event.
	Reply(ctx context.Context, replyToken string, messages ...Message) error
	// Push sends messages directly to a platform user.
	Push(ctx context.Context, to string, messages ...Message) error
}

// Client calls the LINE Messaging API reply and push endpoints.
type Client struct {
	AccessToken string
	BaseURL     string
	HTTPClient  *http.Client
}

// NewClient returns a client with the given channel access token and
// optional base URL (default https://api.line.me).
func NewClient(accessToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.line.me"
	}
	return &Client{
		AccessToken: accessToken,
		BaseURL:     baseURL,
		HTTPClient:  &http.Client{Timeout: defaultTimeout},
	}
}

// Reply sends messages against a reply token. Reply tokens are single-use
// and short-lived; an expired token surfaces as a request failure.
func (c *Client) Reply(ctx context.Context, replyToken string, messages ...Message) error {
	return c.post(ctx, "/v2/bot/message/reply", map[string]interface{}{
		"replyToken": replyToken,
		"messages":   messages,
	})
}

// Push sends messages directly to the given platform user ID.
func (c *Client) Push(ctx context.Context, to string, messages ...Message) error {
	return c.post(ctx, "/v2/bot/message/push", map[string]interface{}{
		"to":       to,
		"messages": messages,
	})
}

func (c *Client) post(ctx context.Context, path string, body map[string]interface{}) error {
	if c.AccessToken == "" {
		return fmt.Errorf("line: access token not configured")
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("line: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
