package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

// Alert is one anti-cheat alert raised by a detection cycle
type Alert struct {
	ID          uuid.UUID        `json:"id"`
	SessionID   string           `json:"session_id"`
	CandidateID string           `json:"candidate_id"`
	Type        domain.AlertType `json:"type"`
	Severity    domain.RiskLevel `json:"severity"`
	Message     string           `json:"message"`
	FaceCount   int              `json:"face_count"`
	TriggeredAt time.Time        `json:"triggered_at"`
}

// debounceKey groups repeats of the same alert for one candidate
func (a *Alert) debounceKey() string {
	return "sentinela:alert:" + a.SessionID + ":" + a.CandidateID + ":" + string(a.Type)
}
