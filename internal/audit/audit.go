package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventFacesDetected      EventType = "FACES_DETECTED"
	EventReferenceEnrolled  EventType = "REFERENCE_ENROLLED"
	EventIdentityVerified   EventType = "IDENTITY_VERIFIED"
	EventMonitorStarted     EventType = "MONITOR_STARTED"
	EventMonitorStopped     EventType = "MONITOR_STOPPED"
	EventAnalyticsFinalized EventType = "ANALYTICS_FINALIZED"
)

// Event is one auditable action on a candidate's biometric data.
// Frames and face descriptors never go into an event.
type Event struct {
	ID          uuid.UUID         `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	EventType   EventType         `json:"event_type"`
	SessionID   string            `json:"session_id,omitempty"`
	CandidateID string            `json:"candidate_id,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Outcome fills Success and Error from the result of the audited call
func (e Event) Outcome(err error) Event {
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger writes events as structured log lines. Failed actions are
// logged at Warn so they surface without a dedicated audit store.
type SlogLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
		now:    time.Now,
	}
}

func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	l.logger.LogAttrs(ctx, level, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("session_id", event.SessionID),
		slog.String("candidate_id", event.CandidateID),
		slog.String("provider", event.Provider),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(payload)),
	)

	return nil
}

// NoOpLogger discards events
type NoOpLogger struct{}

func (NoOpLogger) Log(context.Context, Event) error {
	return nil
}
