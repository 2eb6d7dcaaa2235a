// Package monitor runs detection loops that sample frames at a fixed cadence
// and turn each frame into four signal readings.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/analysis"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
)

// DefaultInterval is the delay between the end of one cycle and the start of the next
const DefaultInterval = 500 * time.Millisecond

// Sink receives every cycle's reading. It runs on the loop goroutine, so the
// next cycle waits until it returns.
type Sink func(ctx context.Context, reading domain.Reading)

// Loop samples a FrameSource cooperatively: the next cycle is scheduled only
// after the current one completes, so cycles never overlap.
type Loop struct {
	source    provider.LandmarkSource
	extractor *analysis.Extractor
	interval  time.Duration
	log       *SessionLog
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu          sync.Mutex
	running     bool
	generation  uint64
	timer       *time.Timer
	ctx         context.Context
	frames      FrameSource
	sink        Sink
	cycles      uint64
	awaiting    uint64
	active      int
	idle        *sync.Cond
	startedAt   time.Time
	lastReading *domain.Reading
}

type LoopOption func(*Loop)

func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

func WithLoopMetrics(m *metrics.Metrics) LoopOption {
	return func(l *Loop) {
		l.metrics = m
	}
}

func NewLoop(source provider.LandmarkSource, extractor *analysis.Extractor, opts ...LoopOption) *Loop {
	l := &Loop{
		source:    source,
		extractor: extractor,
		interval:  DefaultInterval,
		log:       NewSessionLog(),
		logger:    slog.Default(),
	}
	l.idle = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "detection_loop")
	return l
}

// Start begins sampling and schedules the first cycle immediately. It returns
// false without error when the loop is already running, and
// domain.ErrDetectionUnavailable when the landmark source is unhealthy.
func (l *Loop) Start(ctx context.Context, frames FrameSource, sink Sink) (bool, error) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return false, nil
	}
	l.mu.Unlock()

	if err := l.source.Health(ctx); err != nil {
		l.logger.ErrorContext(ctx, "landmark source unavailable, refusing to start",
			slog.String("source", l.source.Name()),
			slog.String("error", err.Error()),
		)
		return false, domain.ErrDetectionUnavailable.WithError(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Another Start may have won while the health check ran
	if l.running {
		return false, nil
	}

	l.running = true
	l.generation++
	l.ctx = ctx
	l.frames = frames
	l.sink = sink
	l.startedAt = time.Now().UTC()

	gen := l.generation
	l.timer = time.AfterFunc(0, func() { l.step(gen) })
	l.metrics.MonitorStarted()

	return true, nil
}

// Stop prevents further cycles. A cycle already in progress finishes but is
// not rescheduled. Returns false when the loop was not running.
func (l *Loop) Stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked()
}

// StopAndWait stops the loop and blocks until a cycle in progress, including
// its sink call, has returned or ctx is done.
func (l *Loop) StopAndWait(ctx context.Context) (bool, error) {
	stopped := l.Stop()

	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		for l.active > 0 {
			l.idle.Wait()
		}
		l.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return stopped, nil
	case <-ctx.Done():
		return stopped, fmt.Errorf("wait for in-flight cycle: %w", ctx.Err())
	}
}

func (l *Loop) stopLocked() bool {
	if !l.running {
		return false
	}
	l.running = false
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.metrics.MonitorStopped()
	return true
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Cycles is the number of completed cycles since creation
func (l *Loop) Cycles() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cycles
}

// AwaitingCycles counts cycles skipped because no frame had been pushed yet
func (l *Loop) AwaitingCycles() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.awaiting
}

func (l *Loop) StartedAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startedAt
}

func (l *Loop) LastReading() *domain.Reading {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastReading == nil {
		return nil
	}
	r := *l.lastReading
	return &r
}

// Log exposes the loop's in-memory session log
func (l *Loop) Log() *SessionLog {
	return l.log
}

func (l *Loop) step(gen uint64) {
	l.mu.Lock()
	if !l.running || gen != l.generation {
		l.mu.Unlock()
		return
	}
	ctx, frames, sink := l.ctx, l.frames, l.sink
	l.active++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.active--
		l.idle.Broadcast()
		l.mu.Unlock()
	}()

	if ctx.Err() != nil {
		l.logger.Info("context done, stopping detection loop")
		l.mu.Lock()
		if gen == l.generation {
			l.stopLocked()
		}
		l.mu.Unlock()
		return
	}

	start := time.Now()
	frame, err := frames.CurrentFrame(ctx)
	if errors.Is(err, domain.ErrNoFrameAvailable) {
		// Nothing pushed yet: recording a degraded reading here would count
		// as an absent candidate.
		l.metrics.IncrementAwaitingFrame()
		l.mu.Lock()
		l.awaiting++
		l.rescheduleLocked(gen)
		l.mu.Unlock()
		return
	}

	reading := l.cycle(ctx, frame, err)
	l.log.Append(reading)
	l.emit(ctx, sink, reading)
	l.metrics.ObserveCycle(time.Since(start))
	l.metrics.IncrementFrames(reading.Degraded())

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cycles++
	l.lastReading = &reading
	l.rescheduleLocked(gen)
}

func (l *Loop) rescheduleLocked(gen uint64) {
	if !l.running || gen != l.generation {
		return
	}
	l.timer = time.AfterFunc(l.interval, func() { l.step(gen) })
}

// cycle analyzes the fetched frame. A frame that could not be fetched
// degrades all four signal classes.
func (l *Loop) cycle(ctx context.Context, frame []byte, fetchErr error) domain.Reading {
	if fetchErr != nil {
		l.logger.WarnContext(ctx, "frame unavailable, degrading cycle", slog.String("error", fetchErr.Error()))
		return l.extractor.Degraded()
	}
	return l.extractor.AnalyzeFrame(ctx, l.source, frame)
}

func (l *Loop) emit(ctx context.Context, sink Sink, reading domain.Reading) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.ErrorContext(ctx, "reading sink panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	sink(ctx, reading)
}
