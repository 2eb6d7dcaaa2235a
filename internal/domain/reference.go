package domain

import (
	"time"

	"github.com/google/uuid"
)

// CandidateReference is the enrolled face descriptor of a candidate
type CandidateReference struct {
	CandidateID string    `json:"candidate_id"`
	Descriptor  []float64 `json:"-"`
	Source      string    `json:"source"`
	Dimensions  int       `json:"dimensions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IdentityCheck records one identity verification attempt
type IdentityCheck struct {
	ID          uuid.UUID `json:"id"`
	SessionID   string    `json:"session_id"`
	CandidateID string    `json:"candidate_id"`
	Verified    bool      `json:"verified"`
	MatchScore  float64   `json:"match_score"`
	Distance    float64   `json:"distance"`
	Reason      string    `json:"reason,omitempty"`
	LatencyMs   int64     `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
