package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
)

// Signal classes, used as log and metric labels
const (
	SignalPresence  = "presence"
	SignalAttention = "attention"
	SignalEmotion   = "emotion"
	SignalAntiCheat = "anti_cheat"
)

// Extractor turns one frame's detection result into the four signal readings.
// A failing analysis (error or panic) degrades only its own signal class.
type Extractor struct {
	threshold  float64
	concurrent bool
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	presence  func([]provider.DetectedFace, time.Time) domain.PresenceReading
	attention func([]provider.DetectedFace, time.Time, float64) (domain.AttentionReading, error)
	emotion   func([]provider.DetectedFace, time.Time) (domain.EmotionReading, error)
	antiCheat func([]provider.DetectedFace, time.Time) domain.AntiCheatReading
}

type Option func(*Extractor)

// WithThreshold sets the looking-away yaw threshold in degrees
func WithThreshold(degrees float64) Option {
	return func(e *Extractor) {
		e.threshold = degrees
	}
}

// WithConcurrency runs the four analyses of a frame in parallel
func WithConcurrency(enabled bool) Option {
	return func(e *Extractor) {
		e.concurrent = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) {
		e.metrics = m
	}
}

// WithClock overrides the time source used to stamp readings
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		threshold: DefaultLookingAwayThreshold,
		logger:    slog.Default(),
		now:       time.Now,
		presence:  Presence,
		attention: Attention,
		emotion:   Emotion,
		antiCheat: AntiCheat,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "extractor")
	return e
}

type analysis struct {
	signal  string
	run     func() error
	degrade func()
}

// Analyze runs the four analyses over the detected faces. Results are the
// same whether the analyses run sequentially or concurrently.
func (e *Extractor) Analyze(ctx context.Context, faces []provider.DetectedFace) domain.Reading {
	ts := e.now().UTC()
	reading := domain.Reading{Timestamp: ts}

	analyses := []analysis{
		{
			signal: SignalPresence,
			run: func() error {
				reading.Presence = e.presence(faces, ts)
				return nil
			},
			degrade: func() { reading.Presence = degradedPresence(ts) },
		},
		{
			signal: SignalAttention,
			run: func() error {
				r, err := e.attention(faces, ts, e.threshold)
				reading.Attention = r
				return err
			},
			degrade: func() { reading.Attention = degradedAttention(ts) },
		},
		{
			signal: SignalEmotion,
			run: func() error {
				r, err := e.emotion(faces, ts)
				reading.Emotion = r
				return err
			},
			degrade: func() { reading.Emotion = degradedEmotion(ts) },
		},
		{
			signal: SignalAntiCheat,
			run: func() error {
				reading.AntiCheat = e.antiCheat(faces, ts)
				return nil
			},
			degrade: func() { reading.AntiCheat = degradedAntiCheat(ts) },
		},
	}

	if !e.concurrent {
		for _, a := range analyses {
			e.runSafely(ctx, a)
		}
		return reading
	}

	// Each analysis writes a distinct field of reading
	var g errgroup.Group
	for _, a := range analyses {
		g.Go(func() error {
			e.runSafely(ctx, a)
			return nil
		})
	}
	_ = g.Wait()

	return reading
}

// AnalyzeFrame detects faces in the frame and analyzes them. A detection
// failure degrades all four signal classes for this frame.
func (e *Extractor) AnalyzeFrame(ctx context.Context, source provider.LandmarkSource, frame []byte) domain.Reading {
	start := time.Now()
	faces, err := source.DetectFaces(ctx, frame)
	e.metrics.ObserveSource("detect", time.Since(start))

	if err != nil {
		e.logger.WarnContext(ctx, "face detection failed, degrading frame",
			slog.String("source", source.Name()),
			slog.String("error", err.Error()),
		)
		return e.Degraded()
	}

	return e.Analyze(ctx, faces)
}

// Degraded returns a reading where every signal class failed.
func (e *Extractor) Degraded() domain.Reading {
	ts := e.now().UTC()
	for _, signal := range []string{SignalPresence, SignalAttention, SignalEmotion, SignalAntiCheat} {
		e.metrics.IncrementAnalysisFailure(signal)
	}
	return domain.Reading{
		Timestamp: ts,
		Presence:  degradedPresence(ts),
		Attention: degradedAttention(ts),
		Emotion:   degradedEmotion(ts),
		AntiCheat: degradedAntiCheat(ts),
	}
}

func (e *Extractor) runSafely(ctx context.Context, a analysis) {
	defer func() {
		if r := recover(); r != nil {
			e.fail(ctx, a, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := a.run(); err != nil {
		e.fail(ctx, a, err)
	}
}

func (e *Extractor) fail(ctx context.Context, a analysis, err error) {
	a.degrade()
	e.metrics.IncrementAnalysisFailure(a.signal)
	e.logger.WarnContext(ctx, "analysis failed, degrading reading",
		slog.String("signal", a.signal),
		slog.String("error", err.Error()),
	)
}

func degradedPresence(ts time.Time) domain.PresenceReading {
	r := noFacePresence(ts)
	r.Error = true
	return r
}

func degradedAttention(ts time.Time) domain.AttentionReading {
	r := noFaceAttention(ts)
	r.Error = true
	return r
}

func degradedEmotion(ts time.Time) domain.EmotionReading {
	r := noFaceEmotion(ts)
	r.Error = true
	return r
}

func degradedAntiCheat(ts time.Time) domain.AntiCheatReading {
	r := neutralAntiCheat(ts)
	r.Error = true
	return r
}
