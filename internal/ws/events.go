package ws

import (
	"time"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

type EventType string

const (
	EventReading            EventType = "reading"
	EventAlert              EventType = "alert.triggered"
	EventMonitorStarted     EventType = "monitor.started"
	EventMonitorStopped     EventType = "monitor.stopped"
	EventAnalyticsFinalized EventType = "analytics.finalized"
)

type Event struct {
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadingData is the payload of EventReading
type ReadingData struct {
	CandidateID string         `json:"candidate_id"`
	Reading     domain.Reading `json:"reading"`
}
