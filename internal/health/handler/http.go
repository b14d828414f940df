// Package handler exposes readiness over HTTP for Kubernetes, load
// balancers, and CI.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// checkTimeout bounds the dependency probes so a hung database does not
// hang the health endpoint.
const checkTimeout = 2 * time.Second

// Handler serves GET /healthz. A nil pinger skips the database probe.
type Handler struct {
	db Pinger
}

// NewHandler returns a health handler probing the given dependencies.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

type response struct {
	Status string `json:"status"`
}

// ServeHTTP returns 200 {"status":"ok"} when all probes pass and
// 503 {"status":"unavailable"} otherwise.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(writer, "", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(request.Context(), checkTimeout)
	defer cancel()

	status := http.StatusOK
	body := response{Status: "ok"}
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = response{Status: "unavailable"}
		}
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}
