// Package server exposes the LINE webhook over HTTP. One POST carries a
// batch of events; the handler verifies the channel signature, normalizes
// each event, and dispatches it through the router and coordinator with
// per-user serialization.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"schoolbus-platform/backend/internal/coordinator"
	"schoolbus-platform/backend/internal/event"
	linkdomain "schoolbus-platform/backend/internal/link/domain"
	"schoolbus-platform/backend/internal/platform/userlock"
	"schoolbus-platform/backend/internal/router"
	"schoolbus-platform/backend/internal/security"
	"schoolbus-platform/backend/internal/session"
	"schoolbus-platform/backend/internal/telemetry"
)

// maxWebhookBodySize caps the request body we will read. LINE batches at
// most a few hundred events per delivery; 2 MB gives comfortable headroom.
const maxWebhookBodySize = 2 * 1024 * 1024

// signatureHeader carries the base64 HMAC-SHA256 of the raw body.
const signatureHeader = "X-Line-Signature"

// deduplicationWindow is how long webhook event IDs are tracked. The
// platform retries deliveries within minutes, so 1 hour is conservative.
const deduplicationWindow = 1 * time.Hour

// LinkResolver returns the user's active identity links.
type LinkResolver interface {
	Resolve(ctx context.Context, externalUserID string) ([]*linkdomain.IdentityLink, error)
}

// WebhookHandler processes incoming LINE webhook deliveries. It is an
// http.Handler suitable for any standard mux.
type WebhookHandler struct {
	secret   []byte
	logger   *slog.Logger
	sessions session.Store
	links    LinkResolver
	coord    *coordinator.Coordinator
	emitter  telemetry.EventEmitter
	locks    *userlock.KeyedMutex

	// processed tracks recently handled webhook event IDs for replay
	// protection. Values are the time the event was first handled.
	mu        sync.Mutex
	processed map[string]time.Time
}

// NewWebhookHandler creates a handler that verifies deliveries using the
// channel secret. Panics if secret is empty or any required collaborator is
// nil; a missing secret would accept forged deliveries silently.
func NewWebhookHandler(secret []byte, logger *slog.Logger, sessions session.Store, links LinkResolver, coord *coordinator.Coordinator, emitter telemetry.EventEmitter) *WebhookHandler {
	if len(secret) == 0 {
		panic("WebhookHandler: secret is required")
	}
	if logger == nil {
		panic("WebhookHandler: logger is required")
	}
	if sessions == nil || links == nil || coord == nil {
		panic("WebhookHandler: sessions, links, and coordinator are required")
	}
	return &WebhookHandler{
		secret:    secret,
		logger:    logger,
		sessions:  sessions,
		links:     links,
		coord:     coord,
		emitter:   emitter,
		locks:     userlock.New(),
		processed: make(map[string]time.Time),
	}
}

// ServeHTTP handles one webhook delivery. The whole batch is rejected with
// 401 when the signature fails; individually bad events are dropped and the
// rest of the batch still processes. 503 is reserved for transient backend
// failures so the platform redelivers — the dedup map keeps the redelivery
// from double-processing events that already completed.
func (h *WebhookHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	// Read the body first; HMAC verification requires the raw bytes.
	body, err := io.ReadAll(io.LimitReader(request.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Error("webhook: failed to read body", "error", err)
		http.Error(writer, "", http.StatusInternalServerError)
		return
	}
	if len(body) == 0 {
		http.Error(writer, "", http.StatusBadRequest)
		return
	}

	signature := request.Header.Get(signatureHeader)
	if err := security.VerifySignature(h.secret, body, signature); err != nil {
		h.logger.Warn("webhook: signature verification failed",
			"error", err,
			"remote_addr", request.RemoteAddr,
		)
		telemetry.EmitAsync(h.emitter, request.Context(), &telemetry.Event{
			EventType: telemetry.EventSignatureInvalid,
			Source:    "webhook",
			CreatedAt: time.Now().UTC(),
		})
		// 401 with no information disclosure.
		http.Error(writer, "", http.StatusUnauthorized)
		return
	}

	decoded, err := event.DecodeBody(body)
	if err != nil {
		// Authenticated but undecodable; retrying won't fix it.
		h.logger.Error("webhook: undecodable body", "error", err)
		writer.WriteHeader(http.StatusOK)
		return
	}

	for i := range decoded.Events {
		raw := decoded.Events[i]
		ev, err := event.Normalize(raw)
		if err != nil {
			// One bad event never fails the batch.
			h.logger.Warn("webhook: dropping event",
				"event_id", raw.WebhookEventID,
				"type", raw.Type,
				"error", err,
			)
			telemetry.EmitAsync(h.emitter, request.Context(), &telemetry.Event{
				EventType: telemetry.EventEventDropped,
				EventID:   raw.WebhookEventID,
				Source:    "webhook",
				Metadata:  map[string]string{"reason": err.Error()},
				CreatedAt: time.Now().UTC(),
			})
			continue
		}

		if ev.EventID != "" && h.alreadyProcessed(ev.EventID) {
			h.logger.Debug("webhook: duplicate event, ignoring",
				"event_id", ev.EventID,
				"kind", ev.Kind,
			)
			continue
		}

		if err := h.process(request.Context(), ev); err != nil {
			h.logger.Error("webhook: transient failure, requesting redelivery",
				"event_id", ev.EventID,
				"error", err,
			)
			http.Error(writer, "", http.StatusServiceUnavailable)
			return
		}
		if ev.EventID != "" {
			h.markProcessed(ev.EventID)
		}
	}

	writer.WriteHeader(http.StatusOK)
}

// process dispatches one normalized event: resolve links, load the session,
// route, and hand off to the coordinator, all under the user's lock so a
// burst from one user applies in arrival order. Returns an error only for
// transient backend failures that warrant redelivery.
func (h *WebhookHandler) process(ctx context.Context, ev *event.InboundEvent) error {
	h.locks.Lock(ev.ExternalUserID)
	defer h.locks.Unlock(ev.ExternalUserID)

	links, err := h.links.Resolve(ctx, ev.ExternalUserID)
	if err != nil {
		return errors.New("resolve identity links: " + err.Error())
	}
	sess, err := h.sessions.Get(ctx, ev.ExternalUserID)
	if err != nil {
		return errors.New("load session: " + err.Error())
	}

	ri := router.Route(ev, links, sess.State)

	h.logger.Info("webhook event routed",
		"event_id", ev.EventID,
		"kind", ev.Kind,
		"intent", ri.Kind,
		"linked", len(links) > 0,
	)
	telemetry.EmitAsync(h.emitter, ctx, &telemetry.Event{
		EventType:      telemetry.EventIntentRouted,
		ExternalUserID: ev.ExternalUserID,
		EventID:        ev.EventID,
		Intent:         string(ri.Kind),
		Source:         "webhook",
		CreatedAt:      time.Now().UTC(),
	})

	return h.coord.Handle(ctx, ev, ri, sess)
}

// alreadyProcessed reports whether the event ID completed within the
// deduplication window. Prunes expired entries on every check; the map is
// small (one entry per event over the last hour) so this is cheap.
func (h *WebhookHandler) alreadyProcessed(eventID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for id, handledAt := range h.processed {
		if now.Sub(handledAt) > deduplicationWindow {
			delete(h.processed, id)
		}
	}
	_, exists := h.processed[eventID]
	return exists
}

// markProcessed records a completed event ID. Recorded only after the event
// fully processed, so a 503 redelivery retries the unfinished ones.
func (h *WebhookHandler) markProcessed(eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processed[eventID] = time.Now()
}
