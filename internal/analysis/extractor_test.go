package analysis

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider/mock"
)

var fixedNow = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func detect(t *testing.T, faceCount int) []provider.DetectedFace {
	t.Helper()
	faces, err := mock.New(mock.WithFaceCount(faceCount)).DetectFaces(context.Background(), []byte("frame"))
	require.NoError(t, err)
	return faces
}

func TestPresence(t *testing.T) {
	none := Presence(nil, fixedNow)
	assert.False(t, none.Detected)
	assert.Zero(t, none.Confidence)
	assert.Zero(t, none.FaceCount)

	two := Presence(detect(t, 2), fixedNow)
	assert.True(t, two.Detected)
	assert.Equal(t, 2, two.FaceCount)
	assert.InDelta(t, 0.99, two.Confidence, 1e-9, "confidence is the top detection score")
	assert.Equal(t, fixedNow, two.Timestamp)
}

func TestAttention_NoFace(t *testing.T) {
	reading, err := Attention(nil, fixedNow, DefaultLookingAwayThreshold)

	require.NoError(t, err)
	assert.True(t, reading.LookingAway)
	assert.Nil(t, reading.HeadRotation)
	assert.Zero(t, reading.AttentionScore)
	assert.False(t, reading.Error)
}

func TestAttention_PrimaryFace(t *testing.T) {
	faces := []provider.DetectedFace{
		{Confidence: 0.6, Landmarks: landmarks(t, 60, 0)},
		{Confidence: 0.9, Landmarks: landmarks(t, 0, 0)},
	}

	reading, err := Attention(faces, fixedNow, DefaultLookingAwayThreshold)

	require.NoError(t, err)
	require.NotNil(t, reading.HeadRotation)
	assert.InDelta(t, 0, reading.HeadRotation.Yaw, 1e-9, "most confident face is analyzed")
	assert.False(t, reading.LookingAway)
	assert.True(t, reading.EyesOpen)
	assert.InDelta(t, 73, reading.AttentionScore, 1e-9)
}

func TestAttention_Threshold(t *testing.T) {
	faces := []provider.DetectedFace{{Confidence: 0.9, Landmarks: landmarks(t, 40, 0)}}

	atDefault, err := Attention(faces, fixedNow, 45)
	require.NoError(t, err)
	assert.False(t, atDefault.LookingAway)

	strict, err := Attention(faces, fixedNow, 30)
	require.NoError(t, err)
	assert.True(t, strict.LookingAway)
	assert.InDelta(t, 34, strict.AttentionScore, 1e-9)
}

func TestAttention_MissingLandmarks(t *testing.T) {
	_, err := Attention([]provider.DetectedFace{{Confidence: 0.9}}, fixedNow, 45)
	assert.ErrorIs(t, err, ErrMissingLandmarks)
}

func TestEmotion(t *testing.T) {
	tests := []struct {
		name           string
		expressions    map[domain.Emotion]float64
		wantDominant   domain.Emotion
		wantScore      float64
		wantConfidence domain.ConfidenceIndicator
	}{
		{
			name:           "neutral dominates",
			expressions:    map[domain.Emotion]float64{domain.EmotionNeutral: 0.8, domain.EmotionHappy: 0.1},
			wantDominant:   domain.EmotionNeutral,
			wantScore:      0.8,
			wantConfidence: domain.ConfidenceHigh,
		},
		{
			name:           "sad is medium",
			expressions:    map[domain.Emotion]float64{domain.EmotionSad: 0.6, domain.EmotionNeutral: 0.3},
			wantDominant:   domain.EmotionSad,
			wantScore:      0.6,
			wantConfidence: domain.ConfidenceMedium,
		},
		{
			name:           "fearful is low",
			expressions:    map[domain.Emotion]float64{domain.EmotionFearful: 0.7},
			wantDominant:   domain.EmotionFearful,
			wantScore:      0.7,
			wantConfidence: domain.ConfidenceLow,
		},
		{
			name: "tie keeps earliest label",
			expressions: map[domain.Emotion]float64{
				domain.EmotionSurprised: 0.4,
				domain.EmotionAngry:     0.4,
				domain.EmotionHappy:     0.2,
			},
			wantDominant:   domain.EmotionAngry,
			wantScore:      0.4,
			wantConfidence: domain.ConfidenceLow,
		},
		{
			name:           "unknown labels never win",
			expressions:    map[domain.Emotion]float64{"contempt": 0.9, domain.EmotionDisgusted: 0.05},
			wantDominant:   domain.EmotionDisgusted,
			wantScore:      0.05,
			wantConfidence: domain.ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faces := []provider.DetectedFace{{Confidence: 0.9, Expressions: tt.expressions}}

			reading, err := Emotion(faces, fixedNow)

			require.NoError(t, err)
			assert.Equal(t, tt.wantDominant, reading.DominantEmotion)
			assert.InDelta(t, tt.wantScore, reading.DominantEmotionScore, 1e-9)
			assert.Equal(t, tt.wantConfidence, reading.ConfidenceIndicator)
			assert.Equal(t, tt.expressions, reading.Emotions, "probabilities pass through unchanged")
		})
	}
}

func TestEmotion_NoFace(t *testing.T) {
	reading, err := Emotion(nil, fixedNow)

	require.NoError(t, err)
	assert.Nil(t, reading.Emotions)
	assert.Empty(t, reading.DominantEmotion)
	assert.Zero(t, reading.DominantEmotionScore)
	assert.Equal(t, domain.ConfidenceLow, reading.ConfidenceIndicator)
}

func TestEmotion_MissingExpressions(t *testing.T) {
	_, err := Emotion([]provider.DetectedFace{{Confidence: 0.9}}, fixedNow)
	assert.ErrorIs(t, err, ErrMissingExpressions)

	_, err = Emotion([]provider.DetectedFace{{Confidence: 0.9, Expressions: map[domain.Emotion]float64{"contempt": 1}}}, fixedNow)
	assert.ErrorIs(t, err, ErrMissingExpressions)
}

func TestEmotion_DoesNotAliasSourceMap(t *testing.T) {
	expressions := map[domain.Emotion]float64{domain.EmotionHappy: 0.9}
	reading, err := Emotion([]provider.DetectedFace{{Confidence: 0.9, Expressions: expressions}}, fixedNow)
	require.NoError(t, err)

	expressions[domain.EmotionHappy] = 0
	assert.Equal(t, 0.9, reading.Emotions[domain.EmotionHappy])
}

func TestConfidenceFor(t *testing.T) {
	assert.Equal(t, domain.ConfidenceHigh, ConfidenceFor(domain.EmotionHappy))
	assert.Equal(t, domain.ConfidenceMedium, ConfidenceFor(domain.EmotionSurprised))
	assert.Equal(t, domain.ConfidenceLow, ConfidenceFor(domain.EmotionAngry))
	assert.Equal(t, domain.ConfidenceMedium, ConfidenceFor("bored"))
}

func TestAntiCheat(t *testing.T) {
	t.Run("single face is low risk", func(t *testing.T) {
		reading := AntiCheat(detect(t, 1), fixedNow)
		assert.Empty(t, reading.Alerts)
		assert.Equal(t, domain.RiskLow, reading.RiskLevel)
		assert.False(t, reading.MultipleFaces)
	})

	t.Run("two faces escalate to high", func(t *testing.T) {
		reading := AntiCheat(detect(t, 2), fixedNow)
		require.Len(t, reading.Alerts, 1)
		assert.Equal(t, domain.AlertMultipleFaces, reading.Alerts[0].Type)
		assert.Equal(t, domain.RiskHigh, reading.Alerts[0].Severity)
		assert.Equal(t, "2 faces detected", reading.Alerts[0].Message)
		assert.Equal(t, domain.RiskHigh, reading.RiskLevel)
		assert.True(t, reading.MultipleFaces)
		assert.Equal(t, 2, reading.FaceCount)
	})

	t.Run("no face is critical", func(t *testing.T) {
		reading := AntiCheat(nil, fixedNow)
		require.Len(t, reading.Alerts, 1)
		assert.Equal(t, domain.AlertNoFaceDetected, reading.Alerts[0].Type)
		assert.Equal(t, domain.RiskCritical, reading.Alerts[0].Severity)
		assert.Equal(t, "Candidate not visible", reading.Alerts[0].Message)
		assert.Equal(t, domain.RiskCritical, reading.RiskLevel)
	})
}

func TestExtractor_Analyze_NoFace(t *testing.T) {
	e := NewExtractor(WithClock(fixedClock))

	reading := e.Analyze(context.Background(), nil)

	assert.Equal(t, fixedNow, reading.Timestamp)
	assert.False(t, reading.Presence.Detected)
	assert.True(t, reading.Attention.LookingAway)
	assert.Nil(t, reading.Attention.HeadRotation)
	assert.Zero(t, reading.Attention.AttentionScore)
	assert.Equal(t, domain.RiskCritical, reading.AntiCheat.RiskLevel)
	assert.False(t, reading.Degraded(), "no face is a reading, not a failure")
}

func TestExtractor_Analyze_SequentialAndConcurrentAgree(t *testing.T) {
	for _, count := range []int{0, 1, 2, 3} {
		faces := detect(t, count)

		sequential := NewExtractor(WithClock(fixedClock)).Analyze(context.Background(), faces)
		concurrent := NewExtractor(WithClock(fixedClock), WithConcurrency(true)).Analyze(context.Background(), faces)

		assert.Equal(t, sequential, concurrent, "face count %d", count)
	}
}

func TestExtractor_Analyze_FailureIsolation(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		var logs bytes.Buffer
		m := metrics.New()
		e := NewExtractor(
			WithClock(fixedClock),
			WithConcurrency(concurrent),
			WithMetrics(m),
			WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
		)
		e.attention = func([]provider.DetectedFace, time.Time, float64) (domain.AttentionReading, error) {
			panic("landmark index out of range")
		}
		e.emotion = func([]provider.DetectedFace, time.Time) (domain.EmotionReading, error) {
			return domain.EmotionReading{DominantEmotion: domain.EmotionHappy}, errors.New("expression net failed")
		}

		reading := e.Analyze(context.Background(), detect(t, 1))

		assert.True(t, reading.Presence.Detected, "presence is unaffected")
		assert.False(t, reading.Presence.Error)
		assert.Equal(t, domain.RiskLow, reading.AntiCheat.RiskLevel, "anti-cheat is unaffected")

		assert.True(t, reading.Attention.Error)
		assert.True(t, reading.Attention.LookingAway)
		assert.Nil(t, reading.Attention.HeadRotation)

		assert.True(t, reading.Emotion.Error)
		assert.Empty(t, reading.Emotion.DominantEmotion, "partial result is discarded")
		assert.Equal(t, domain.ConfidenceLow, reading.Emotion.ConfidenceIndicator)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisFailures.WithLabelValues(SignalAttention)))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisFailures.WithLabelValues(SignalEmotion)))
		assert.Contains(t, logs.String(), "landmark index out of range")
		assert.Contains(t, logs.String(), "expression net failed")
	}
}

type failingSource struct {
	*mock.Provider
}

func (failingSource) DetectFaces(context.Context, []byte) ([]provider.DetectedFace, error) {
	return nil, errors.New("sidecar timeout")
}

func TestExtractor_AnalyzeFrame(t *testing.T) {
	e := NewExtractor(WithClock(fixedClock))

	t.Run("detects and analyzes", func(t *testing.T) {
		reading := e.AnalyzeFrame(context.Background(), mock.New(mock.WithFaceCount(2)), []byte("frame"))

		assert.Equal(t, 2, reading.Presence.FaceCount)
		assert.Equal(t, domain.RiskHigh, reading.AntiCheat.RiskLevel)
		assert.Equal(t, domain.EmotionNeutral, reading.Emotion.DominantEmotion)
		assert.False(t, reading.Degraded())
	})

	t.Run("detection failure degrades every signal", func(t *testing.T) {
		reading := e.AnalyzeFrame(context.Background(), failingSource{mock.New()}, []byte("frame"))

		assert.True(t, reading.Presence.Error)
		assert.True(t, reading.Attention.Error)
		assert.True(t, reading.Emotion.Error)
		assert.True(t, reading.AntiCheat.Error)
		assert.Empty(t, reading.AntiCheat.Alerts, "failures never fabricate incidents")
		assert.Equal(t, fixedNow, reading.Timestamp)
	})
}
