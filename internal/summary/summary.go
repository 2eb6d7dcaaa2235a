// Package summary computes session-level scores from per-frame logs. Every
// call recomputes from scratch so the result is a pure function of the logs.
package summary

import (
	"math"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

const (
	criticalIncidentWeight = 30.0
	highIncidentWeight     = 15.0
	maxSuspicion           = 100.0
)

// Logs is the read-side view of a session shared by persisted records and
// a detection loop's in-memory log.
type Logs struct {
	Presence  []domain.PresenceReading
	Attention []domain.AttentionReading
	Emotion   []domain.EmotionReading
	Incidents []domain.Incident
}

// FromRecord exposes a persisted record's logs.
func FromRecord(record *domain.SessionAnalytics) Logs {
	return Logs{
		Presence:  record.PresenceLogs,
		Attention: record.AttentionLogs,
		Emotion:   record.EmotionTimeline,
		Incidents: record.Incidents(),
	}
}

// Compute returns the four summary scores for a record.
func Compute(record *domain.SessionAnalytics) domain.Summary {
	return ComputeLogs(FromRecord(record))
}

// ComputeLogs returns the four summary scores for raw logs.
func ComputeLogs(logs Logs) domain.Summary {
	return domain.Summary{
		PresencePercentage:    PresencePercentage(logs.Presence),
		AttentionScore:        AttentionScore(logs.Attention),
		EmotionalConsistency:  EmotionalConsistency(logs.Emotion),
		OverallSuspicionScore: SuspicionScore(logs.Incidents),
	}
}

// PresencePercentage is the share of readings with a detected face.
func PresencePercentage(logs []domain.PresenceReading) float64 {
	detected := 0
	for _, r := range logs {
		if r.Detected {
			detected++
		}
	}
	return 100 * float64(detected) / float64(max(1, len(logs)))
}

// AttentionScore is the mean attention score rounded to two decimals, or 0
// without readings.
func AttentionScore(logs []domain.AttentionReading) float64 {
	if len(logs) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range logs {
		total += r.AttentionScore
	}
	return round2(total / float64(len(logs)))
}

// EmotionalConsistency is the share of the timeline held by the most frequent
// dominant emotion. Entries without a dominant emotion count toward the
// total only.
func EmotionalConsistency(timeline []domain.EmotionReading) float64 {
	counts := make(map[domain.Emotion]int, len(domain.EmotionLabels))
	top := 0
	for _, r := range timeline {
		if r.DominantEmotion == "" {
			continue
		}
		counts[r.DominantEmotion]++
		top = max(top, counts[r.DominantEmotion])
	}
	return 100 * float64(top) / float64(max(1, len(timeline)))
}

// SuspicionScore weighs CRITICAL incidents 30 and HIGH incidents 15, capped at 100.
func SuspicionScore(incidents []domain.Incident) float64 {
	score := 0.0
	for _, inc := range incidents {
		switch inc.Severity {
		case domain.RiskCritical:
			score += criticalIncidentWeight
		case domain.RiskHigh:
			score += highIncidentWeight
		}
	}
	return math.Min(score, maxSuspicion)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
