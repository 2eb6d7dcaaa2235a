package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/audit"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/repository"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/summary"
)

// maxKeyLength matches the VARCHAR(255) key columns
const maxKeyLength = 255

// AnalyticsReport is a stored record with the summary computed from its current logs.
type AnalyticsReport struct {
	Record      *domain.SessionAnalytics `json:"record"`
	LiveSummary domain.Summary           `json:"live_summary"`
}

// AnalyticsService implements event ingestion, queries and finalization
// over a SessionAnalyticsStore.
type AnalyticsService struct {
	store   repository.SessionAnalyticsStore
	audit   audit.Logger
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewAnalyticsService(
	store repository.SessionAnalyticsStore,
	auditLogger audit.Logger,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AnalyticsService {
	if auditLogger == nil {
		auditLogger = &audit.NoOpLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		store:   store,
		audit:   auditLogger,
		metrics: m,
		logger:  logger.With("component", "analytics_service"),
		now:     time.Now,
	}
}

// SubmitEvent appends one entry per present reading to the record for the key,
// creating the record on first use. Each call appends; it is not idempotent.
func (s *AnalyticsService) SubmitEvent(ctx context.Context, sessionID, candidateID string, event domain.AnalyticsEvent) (*domain.SessionAnalytics, error) {
	if err := validateKey(sessionID, candidateID); err != nil {
		return nil, err
	}
	if event.IsEmpty() {
		return nil, domain.ErrEmptyEvent
	}
	if err := validateEvent(event); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	record, err := s.store.Upsert(ctx, sessionID, candidateID, func(r *domain.SessionAnalytics) error {
		r.Apply(event, s.now().UTC())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session %s candidate %s: submit event: %w", sessionID, candidateID, err)
	}

	for _, kind := range eventKinds(event) {
		s.metrics.IncrementIngested(kind)
	}

	return record, nil
}

// GetAnalytics returns the stored record together with a summary computed from
// its current logs. The persisted Summary field is only written by Finalize.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, sessionID, candidateID string) (*AnalyticsReport, error) {
	if err := validateKey(sessionID, candidateID); err != nil {
		return nil, err
	}

	record, err := s.store.Get(ctx, sessionID, candidateID)
	if err != nil {
		if errors.Is(err, domain.ErrAnalyticsNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("session %s candidate %s: get analytics: %w", sessionID, candidateID, err)
	}

	return &AnalyticsReport{Record: record, LiveSummary: summary.Compute(record)}, nil
}

// ListSession returns a report for every candidate of the session.
func (s *AnalyticsService) ListSession(ctx context.Context, sessionID string) ([]AnalyticsReport, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrValidationFailed.WithError(errors.New("session_id is required"))
	}

	records, err := s.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: list analytics: %w", sessionID, err)
	}

	reports := make([]AnalyticsReport, 0, len(records))
	for _, record := range records {
		reports = append(reports, AnalyticsReport{Record: record, LiveSummary: summary.Compute(record)})
	}
	return reports, nil
}

// Finalize computes the summary from the current logs and persists it as the
// record's snapshot. Calling it again overwrites the snapshot.
func (s *AnalyticsService) Finalize(ctx context.Context, sessionID, candidateID string) (*domain.SessionAnalytics, error) {
	if err := validateKey(sessionID, candidateID); err != nil {
		return nil, err
	}

	record, err := s.store.Update(ctx, sessionID, candidateID, func(r *domain.SessionAnalytics) error {
		snapshot := summary.Compute(r)
		now := s.now().UTC()
		r.Summary = &snapshot
		r.FinalizedAt = &now
		r.UpdatedAt = now
		return nil
	})

	s.logAudit(ctx, sessionID, candidateID, err)

	if err != nil {
		if errors.Is(err, domain.ErrAnalyticsNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("session %s candidate %s: finalize: %w", sessionID, candidateID, err)
	}

	s.logger.InfoContext(ctx, "analytics finalized",
		slog.String("session_id", sessionID),
		slog.String("candidate_id", candidateID),
		slog.Float64("presence_percentage", record.Summary.PresencePercentage),
		slog.Float64("overall_suspicion_score", record.Summary.OverallSuspicionScore),
	)

	return record, nil
}

func (s *AnalyticsService) logAudit(ctx context.Context, sessionID, candidateID string, err error) {
	event := audit.Event{
		EventType:   audit.EventAnalyticsFinalized,
		SessionID:   sessionID,
		CandidateID: candidateID,
	}.Outcome(err)
	_ = s.audit.Log(ctx, event)
}

func validateKey(sessionID, candidateID string) error {
	switch {
	case strings.TrimSpace(sessionID) == "":
		return domain.ErrValidationFailed.WithError(errors.New("session_id is required"))
	case strings.TrimSpace(candidateID) == "":
		return domain.ErrValidationFailed.WithError(errors.New("candidate_id is required"))
	case len(sessionID) > maxKeyLength || len(candidateID) > maxKeyLength:
		return domain.ErrValidationFailed.WithError(fmt.Errorf("ids must be at most %d characters", maxKeyLength))
	}
	return nil
}

// validateEvent rejects readings a remote producer could not have computed:
// scores outside their scale and unknown enum values.
func validateEvent(event domain.AnalyticsEvent) error {
	if p := event.Presence; p != nil {
		if !within(p.Confidence, 0, 1) {
			return fmt.Errorf("presence.confidence %v outside [0,1]", p.Confidence)
		}
		if p.FaceCount < 0 {
			return fmt.Errorf("presence.face_count %d is negative", p.FaceCount)
		}
	}

	if a := event.Attention; a != nil {
		if !within(a.AttentionScore, 0, 100) {
			return fmt.Errorf("attention.attention_score %v outside [0,100]", a.AttentionScore)
		}
		if a.EyeAspectRatio < 0 {
			return fmt.Errorf("attention.eye_aspect_ratio %v is negative", a.EyeAspectRatio)
		}
	}

	if e := event.Emotion; e != nil {
		for label, p := range e.Emotions {
			if !within(p, 0, 1) {
				return fmt.Errorf("emotion.emotions[%s] %v outside [0,1]", label, p)
			}
		}
		if !within(e.DominantEmotionScore, 0, 1) {
			return fmt.Errorf("emotion.dominant_emotion_score %v outside [0,1]", e.DominantEmotionScore)
		}
		if e.ConfidenceIndicator != "" && !e.ConfidenceIndicator.Valid() {
			return fmt.Errorf("emotion.confidence_indicator %q is not HIGH, MEDIUM or LOW", e.ConfidenceIndicator)
		}
	}

	if ac := event.AntiCheat; ac != nil {
		if !ac.RiskLevel.Valid() {
			return fmt.Errorf("anti_cheat.risk_level %q is not a risk level", ac.RiskLevel)
		}
		if ac.FaceCount < 0 {
			return fmt.Errorf("anti_cheat.face_count %d is negative", ac.FaceCount)
		}
		for i, alert := range ac.Alerts {
			if !alert.Severity.Valid() {
				return fmt.Errorf("anti_cheat.alerts[%d].severity %q is not a risk level", i, alert.Severity)
			}
		}
	}

	return nil
}

// within also rejects NaN
func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func eventKinds(event domain.AnalyticsEvent) []string {
	var kinds []string
	if event.Presence != nil {
		kinds = append(kinds, "presence")
	}
	if event.Attention != nil {
		kinds = append(kinds, "attention")
	}
	if event.Emotion != nil {
		kinds = append(kinds, "emotion")
	}
	if event.AntiCheat != nil {
		kinds = append(kinds, "anti_cheat")
	}
	return kinds
}
