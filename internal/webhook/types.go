package webhook

import (
	"time"

	"github.com/google/uuid"
)

const (
	SignatureHeader = "X-Sentinela-Signature"
	EventHeader     = "X-Sentinela-Event"
	DeliveryHeader  = "X-Sentinela-Delivery"
	userAgent       = "Sentinela-Webhook/1.0"
)

// EventPayload is the JSON body POSTed to the configured endpoint.
type EventPayload struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	CandidateID string    `json:"candidate_id"`
	Data        any       `json:"data"`
	Timestamp   time.Time `json:"timestamp"`
}

// Job is a queued delivery
type Job struct {
	Payload  EventPayload
	Attempts int
}
