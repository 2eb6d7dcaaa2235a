package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
)

var (
	// ErrMissingLandmarks indicates the primary face has no resolvable landmark set
	ErrMissingLandmarks = errors.New("primary face has no landmarks")

	// ErrMissingExpressions indicates the primary face reports none of the known expression labels
	ErrMissingExpressions = errors.New("primary face has no expressions")
)

var confidenceByEmotion = map[domain.Emotion]domain.ConfidenceIndicator{
	domain.EmotionNeutral:   domain.ConfidenceHigh,
	domain.EmotionHappy:     domain.ConfidenceHigh,
	domain.EmotionSad:       domain.ConfidenceMedium,
	domain.EmotionAngry:     domain.ConfidenceLow,
	domain.EmotionFearful:   domain.ConfidenceLow,
	domain.EmotionDisgusted: domain.ConfidenceLow,
	domain.EmotionSurprised: domain.ConfidenceMedium,
}

// Presence reports whether any face is in the frame. Confidence is the top
// detection score.
func Presence(faces []provider.DetectedFace, ts time.Time) domain.PresenceReading {
	reading := domain.PresenceReading{
		Timestamp: ts,
		Detected:  len(faces) > 0,
		FaceCount: len(faces),
	}
	if primary := provider.Primary(faces); primary != nil {
		reading.Confidence = primary.Confidence
	}
	return reading
}

// Attention estimates head pose and eye aperture of the primary face.
func Attention(faces []provider.DetectedFace, ts time.Time, threshold float64) (domain.AttentionReading, error) {
	primary := provider.Primary(faces)
	if primary == nil {
		return noFaceAttention(ts), nil
	}
	if primary.Landmarks == nil {
		return domain.AttentionReading{}, ErrMissingLandmarks
	}

	rot := HeadRotation(primary.Landmarks)
	ear := EyeAspectRatio(primary.Landmarks)
	away := LookingAway(rot, threshold)

	return domain.AttentionReading{
		Timestamp:      ts,
		LookingAway:    away,
		HeadRotation:   &rot,
		EyeAspectRatio: ear,
		EyesOpen:       EyesOpen(ear),
		AttentionScore: AttentionScore(away, rot),
	}, nil
}

// Emotion picks the dominant expression of the primary face. Probabilities
// are passed through as reported by the source.
func Emotion(faces []provider.DetectedFace, ts time.Time) (domain.EmotionReading, error) {
	primary := provider.Primary(faces)
	if primary == nil {
		return noFaceEmotion(ts), nil
	}

	dominant, score, ok := DominantEmotion(primary.Expressions)
	if !ok {
		return domain.EmotionReading{}, ErrMissingExpressions
	}

	emotions := make(map[domain.Emotion]float64, len(primary.Expressions))
	for label, p := range primary.Expressions {
		emotions[label] = p
	}

	return domain.EmotionReading{
		Timestamp:            ts,
		Emotions:             emotions,
		DominantEmotion:      dominant,
		DominantEmotionScore: score,
		ConfidenceIndicator:  ConfidenceFor(dominant),
	}, nil
}

// AntiCheat flags frames with more than one face or with no face at all.
func AntiCheat(faces []provider.DetectedFace, ts time.Time) domain.AntiCheatReading {
	count := len(faces)
	reading := domain.AntiCheatReading{
		Timestamp:     ts,
		MultipleFaces: count > 1,
		FaceCount:     count,
		RiskLevel:     domain.RiskLow,
	}

	switch {
	case count > 1:
		reading.Alerts = []domain.AntiCheatAlert{{
			Type:     domain.AlertMultipleFaces,
			Severity: domain.RiskHigh,
			Message:  fmt.Sprintf("%d faces detected", count),
		}}
		reading.RiskLevel = domain.RiskHigh
	case count == 0:
		reading.Alerts = []domain.AntiCheatAlert{{
			Type:     domain.AlertNoFaceDetected,
			Severity: domain.RiskCritical,
			Message:  "Candidate not visible",
		}}
		reading.RiskLevel = domain.RiskCritical
	}

	return reading
}

// DominantEmotion returns the arg-max over the fixed label order. Ties keep
// the earliest label. Labels outside the fixed set never win. ok is false
// when none of the fixed labels is present.
func DominantEmotion(expressions map[domain.Emotion]float64) (domain.Emotion, float64, bool) {
	var (
		best  domain.Emotion
		score float64
		found bool
	)
	for _, label := range domain.EmotionLabels {
		p, present := expressions[label]
		if !present {
			continue
		}
		if !found || p > score {
			best, score, found = label, p, true
		}
	}
	return best, score, found
}

// ConfidenceFor maps an emotion label to how reliably it is recognized.
// Unknown labels are MEDIUM.
func ConfidenceFor(e domain.Emotion) domain.ConfidenceIndicator {
	if c, ok := confidenceByEmotion[e]; ok {
		return c
	}
	return domain.ConfidenceMedium
}

func noFacePresence(ts time.Time) domain.PresenceReading {
	return domain.PresenceReading{Timestamp: ts}
}

func noFaceAttention(ts time.Time) domain.AttentionReading {
	return domain.AttentionReading{
		Timestamp:      ts,
		LookingAway:    true,
		HeadRotation:   nil,
		AttentionScore: 0,
	}
}

func noFaceEmotion(ts time.Time) domain.EmotionReading {
	return domain.EmotionReading{
		Timestamp:           ts,
		ConfidenceIndicator: domain.ConfidenceLow,
	}
}

// neutralAntiCheat carries no alerts so a failed analysis never fabricates incidents.
func neutralAntiCheat(ts time.Time) domain.AntiCheatReading {
	return domain.AntiCheatReading{
		Timestamp: ts,
		RiskLevel: domain.RiskLow,
	}
}
