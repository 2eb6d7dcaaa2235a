package monitor

import (
	"sync"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/summary"
)

// SessionLog is the in-memory log of one interview, owned by a single Loop.
type SessionLog struct {
	mu   sync.RWMutex
	logs summary.Logs
}

func NewSessionLog() *SessionLog {
	return &SessionLog{}
}

// Append records every signal of the reading. Each anti-cheat alert becomes
// one incident stamped with the reading time.
func (l *SessionLog) Append(r domain.Reading) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs.Presence = append(l.logs.Presence, r.Presence)
	l.logs.Attention = append(l.logs.Attention, r.Attention)
	l.logs.Emotion = append(l.logs.Emotion, r.Emotion)
	for _, alert := range r.AntiCheat.Alerts {
		l.logs.Incidents = append(l.logs.Incidents, domain.Incident{
			Timestamp: r.Timestamp,
			Type:      alert.Type,
			Severity:  alert.Severity,
			Message:   alert.Message,
		})
	}
}

// Logs returns a copy of the accumulated logs
func (l *SessionLog) Logs() summary.Logs {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return summary.Logs{
		Presence:  append([]domain.PresenceReading(nil), l.logs.Presence...),
		Attention: append([]domain.AttentionReading(nil), l.logs.Attention...),
		Emotion:   append([]domain.EmotionReading(nil), l.logs.Emotion...),
		Incidents: append([]domain.Incident(nil), l.logs.Incidents...),
	}
}

func (l *SessionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.logs.Presence)
}

func (l *SessionLog) Summary() domain.Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return summary.ComputeLogs(l.logs)
}
