package domain

import "time"

// Emotion is one of the seven expression labels reported by the landmark source.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionFearful   Emotion = "fearful"
	EmotionDisgusted Emotion = "disgusted"
	EmotionSurprised Emotion = "surprised"
)

// EmotionLabels is the fixed label order. Arg-max ties resolve to the earliest label.
var EmotionLabels = []Emotion{
	EmotionNeutral,
	EmotionHappy,
	EmotionSad,
	EmotionAngry,
	EmotionFearful,
	EmotionDisgusted,
	EmotionSurprised,
}

type ConfidenceIndicator string

const (
	ConfidenceHigh   ConfidenceIndicator = "HIGH"
	ConfidenceMedium ConfidenceIndicator = "MEDIUM"
	ConfidenceLow    ConfidenceIndicator = "LOW"
)

func (c ConfidenceIndicator) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Valid reports whether r is one of the four risk buckets
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

type AlertType string

const (
	AlertMultipleFaces  AlertType = "MULTIPLE_FACES"
	AlertNoFaceDetected AlertType = "NO_FACE_DETECTED"
)

// PresenceReading reports whether any face was found in a frame.
type PresenceReading struct {
	Timestamp  time.Time `json:"timestamp"`
	Detected   bool      `json:"detected"`
	Confidence float64   `json:"confidence"`
	FaceCount  int       `json:"face_count"`
	Error      bool      `json:"error,omitempty"`
}

// HeadRotation in degrees. Roll is not estimated and stays 0.
type HeadRotation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// AttentionReading describes gaze and eye state of the primary face.
// HeadRotation is nil when no face was detected.
type AttentionReading struct {
	Timestamp      time.Time     `json:"timestamp"`
	LookingAway    bool          `json:"looking_away"`
	HeadRotation   *HeadRotation `json:"head_rotation"`
	EyeAspectRatio float64       `json:"eye_aspect_ratio"`
	EyesOpen       bool          `json:"eyes_open"`
	AttentionScore float64       `json:"attention_score"`
	Error          bool          `json:"error,omitempty"`
}

type EmotionReading struct {
	Timestamp            time.Time           `json:"timestamp"`
	Emotions             map[Emotion]float64 `json:"emotions"`
	DominantEmotion      Emotion             `json:"dominant_emotion"`
	DominantEmotionScore float64             `json:"dominant_emotion_score"`
	ConfidenceIndicator  ConfidenceIndicator `json:"confidence_indicator"`
	Error                bool                `json:"error,omitempty"`
}

type AntiCheatAlert struct {
	Type     AlertType `json:"type"`
	Severity RiskLevel `json:"severity"`
	Message  string    `json:"message"`
}

type AntiCheatReading struct {
	Timestamp     time.Time        `json:"timestamp"`
	MultipleFaces bool             `json:"multiple_faces"`
	FaceCount     int              `json:"face_count"`
	Alerts        []AntiCheatAlert `json:"alerts"`
	RiskLevel     RiskLevel        `json:"risk_level"`
	Error         bool             `json:"error,omitempty"`
}

// Reading is the combined output of one detection cycle.
type Reading struct {
	Timestamp time.Time        `json:"timestamp"`
	Presence  PresenceReading  `json:"presence"`
	Attention AttentionReading `json:"attention"`
	Emotion   EmotionReading   `json:"emotion"`
	AntiCheat AntiCheatReading `json:"anti_cheat"`
}

// Event converts a cycle reading into an ingestion event carrying all four signals.
func (r Reading) Event() AnalyticsEvent {
	presence, attention, emotion, antiCheat := r.Presence, r.Attention, r.Emotion, r.AntiCheat
	return AnalyticsEvent{
		Presence:  &presence,
		Attention: &attention,
		Emotion:   &emotion,
		AntiCheat: &antiCheat,
	}
}

// Degraded reports whether any signal class failed for this cycle.
func (r Reading) Degraded() bool {
	return r.Presence.Error || r.Attention.Error || r.Emotion.Error || r.AntiCheat.Error
}
