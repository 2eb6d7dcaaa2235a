package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionAnalytics is the persisted record for one candidate in one interview session.
// Log slices are append-only.
type SessionAnalytics struct {
	ID              uuid.UUID          `json:"id"`
	SessionID       string             `json:"session_id"`
	CandidateID     string             `json:"candidate_id"`
	PresenceLogs    []PresenceReading  `json:"presence_logs"`
	AttentionLogs   []AttentionReading `json:"attention_logs"`
	EmotionTimeline []EmotionReading   `json:"emotion_timeline"`
	AntiCheat       *AntiCheatState    `json:"anti_cheat,omitempty"`
	Summary         *Summary           `json:"summary,omitempty"`
	FinalizedAt     *time.Time         `json:"finalized_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// AntiCheatState accumulates incidents and counters across the session.
type AntiCheatState struct {
	Incidents                []Incident `json:"incidents"`
	MultipleFacesDetected    int        `json:"multiple_faces_detected"`
	PhonesDetected           int        `json:"phones_detected"`
	BackgroundPeopleDetected int        `json:"background_people_detected"`
	CheatingRiskLevel        RiskLevel  `json:"cheating_risk_level"`
}

// Incident is one anti-cheat alert as appended to the record.
type Incident struct {
	Timestamp time.Time `json:"timestamp"`
	Type      AlertType `json:"type"`
	Severity  RiskLevel `json:"severity"`
	Message   string    `json:"message"`
}

type Summary struct {
	PresencePercentage    float64 `json:"presence_percentage"`
	AttentionScore        float64 `json:"attention_score"`
	EmotionalConsistency  float64 `json:"emotional_consistency"`
	OverallSuspicionScore float64 `json:"overall_suspicion_score"`
}

// AnalyticsEvent is a partial update. Nil fields are skipped.
type AnalyticsEvent struct {
	Presence  *PresenceReading  `json:"presence,omitempty"`
	Attention *AttentionReading `json:"attention,omitempty"`
	Emotion   *EmotionReading   `json:"emotion,omitempty"`
	AntiCheat *AntiCheatReading `json:"anti_cheat,omitempty"`
}

func (e AnalyticsEvent) IsEmpty() bool {
	return e.Presence == nil && e.Attention == nil && e.Emotion == nil && e.AntiCheat == nil
}

// NewSessionAnalytics returns an empty record for the key.
func NewSessionAnalytics(sessionID, candidateID string, now time.Time) *SessionAnalytics {
	return &SessionAnalytics{
		ID:          uuid.New(),
		SessionID:   sessionID,
		CandidateID: candidateID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply appends the event's readings to the record, stamping each entry with now.
func (a *SessionAnalytics) Apply(event AnalyticsEvent, now time.Time) {
	if event.Presence != nil {
		entry := *event.Presence
		entry.Timestamp = now
		a.PresenceLogs = append(a.PresenceLogs, entry)
	}

	if event.Attention != nil {
		entry := *event.Attention
		entry.Timestamp = now
		if entry.HeadRotation != nil {
			rotation := *entry.HeadRotation
			entry.HeadRotation = &rotation
		}
		a.AttentionLogs = append(a.AttentionLogs, entry)
	}

	if event.Emotion != nil {
		entry := *event.Emotion
		entry.Timestamp = now
		if entry.Emotions != nil {
			emotions := make(map[Emotion]float64, len(entry.Emotions))
			for k, v := range entry.Emotions {
				emotions[k] = v
			}
			entry.Emotions = emotions
		}
		a.EmotionTimeline = append(a.EmotionTimeline, entry)
	}

	if event.AntiCheat != nil {
		if a.AntiCheat == nil {
			a.AntiCheat = &AntiCheatState{CheatingRiskLevel: RiskLow}
		}
		for _, alert := range event.AntiCheat.Alerts {
			a.AntiCheat.Incidents = append(a.AntiCheat.Incidents, Incident{
				Timestamp: now,
				Type:      alert.Type,
				Severity:  alert.Severity,
				Message:   alert.Message,
			})
		}
		a.AntiCheat.CheatingRiskLevel = event.AntiCheat.RiskLevel
		if event.AntiCheat.FaceCount > 1 {
			a.AntiCheat.MultipleFacesDetected++
		}
	}

	a.UpdatedAt = now
}

// Incidents returns the anti-cheat incident log, or nil when none was recorded.
func (a *SessionAnalytics) Incidents() []Incident {
	if a.AntiCheat == nil {
		return nil
	}
	return a.AntiCheat.Incidents
}

// Clone returns a deep copy so callers cannot mutate stored logs.
func (a *SessionAnalytics) Clone() *SessionAnalytics {
	out := *a
	out.PresenceLogs = append([]PresenceReading(nil), a.PresenceLogs...)
	out.AttentionLogs = nil
	for _, entry := range a.AttentionLogs {
		if entry.HeadRotation != nil {
			rotation := *entry.HeadRotation
			entry.HeadRotation = &rotation
		}
		out.AttentionLogs = append(out.AttentionLogs, entry)
	}
	out.EmotionTimeline = nil
	for _, entry := range a.EmotionTimeline {
		if entry.Emotions != nil {
			emotions := make(map[Emotion]float64, len(entry.Emotions))
			for k, v := range entry.Emotions {
				emotions[k] = v
			}
			entry.Emotions = emotions
		}
		out.EmotionTimeline = append(out.EmotionTimeline, entry)
	}
	if a.AntiCheat != nil {
		state := *a.AntiCheat
		state.Incidents = append([]Incident(nil), a.AntiCheat.Incidents...)
		out.AntiCheat = &state
	}
	if a.Summary != nil {
		summary := *a.Summary
		out.Summary = &summary
	}
	if a.FinalizedAt != nil {
		finalized := *a.FinalizedAt
		out.FinalizedAt = &finalized
	}
	return &out
}
