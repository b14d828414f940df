// Package telemetry defines the bot's telemetry event and the emitter
// interface. Events flow to OTel logs in-process and to Kafka for the
// Loki forwarding worker; both paths are best-effort.
package telemetry

import "time"

// Event types emitted by the webhook pipeline.
const (
	EventWebhookReceived  = "webhook_received"
	EventEventDropped     = "event_dropped"
	EventIntentRouted     = "intent_routed"
	EventLinkCreated      = "link_created"
	EventLinkRemoved      = "link_removed"
	EventSignatureInvalid = "signature_invalid"
)

// Event is one telemetry record. Serialized as JSON on the Kafka topic;
// the field names are part of the topic contract consumed by the worker.
type Event struct {
	EventType      string            `json:"eventType"`
	ExternalUserID string            `json:"externalUserId,omitempty"`
	EventID        string            `json:"eventId,omitempty"`
	Intent         string            `json:"intent,omitempty"`
	Source         string            `json:"source"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}
