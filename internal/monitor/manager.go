package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/analysis"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/audit"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
)

// Key identifies one candidate in one interview session
type Key struct {
	SessionID   string
	CandidateID string
}

func (k Key) String() string {
	return k.SessionID + "/" + k.CandidateID
}

// SinkFactory builds the sink that receives a monitor's readings
type SinkFactory func(key Key) Sink

// Status describes a monitor for API responses.
type Status struct {
	SessionID    string          `json:"session_id"`
	CandidateID  string          `json:"candidate_id"`
	Running      bool            `json:"running"`
	Cycles       uint64          `json:"cycles"`
	Awaiting     uint64          `json:"awaiting_frame_cycles"`
	StartedAt    time.Time       `json:"started_at"`
	LastFrameAt  *time.Time      `json:"last_frame_at,omitempty"`
	LastReading  *domain.Reading `json:"last_reading,omitempty"`
	LocalSummary domain.Summary  `json:"local_summary"`
}

type entry struct {
	loop   *Loop
	buffer *FrameBuffer
}

// Manager owns one detection loop per (session, candidate).
type Manager struct {
	source    provider.LandmarkSource
	extractor *analysis.Extractor
	sinks     SinkFactory
	interval  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     audit.Logger

	// ctx outlives the HTTP request that started a loop
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	monitors map[Key]*entry
}

type ManagerOption func(*Manager)

func WithManagerInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.interval = d
	}
}

func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithManagerMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithAuditLogger(logger audit.Logger) ManagerOption {
	return func(m *Manager) {
		m.audit = logger
	}
}

func NewManager(source provider.LandmarkSource, extractor *analysis.Extractor, sinks SinkFactory, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		source:    source,
		extractor: extractor,
		sinks:     sinks,
		interval:  DefaultInterval,
		logger:    slog.Default(),
		audit:     &audit.NoOpLogger{},
		ctx:       ctx,
		cancel:    cancel,
		monitors:  make(map[Key]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "monitor_manager")
	return m
}

// Start creates and starts the loop for key. Starting a running monitor is a
// no-op that returns its current status.
func (m *Manager) Start(ctx context.Context, key Key) (*Status, error) {
	m.mu.Lock()
	e, ok := m.monitors[key]
	if !ok {
		e = &entry{
			buffer: NewFrameBuffer(),
			loop: NewLoop(m.source, m.extractor,
				WithInterval(m.interval),
				WithLoopLogger(m.logger.With("session_id", key.SessionID, "candidate_id", key.CandidateID)),
				WithLoopMetrics(m.metrics),
			),
		}
		m.monitors[key] = e
	}
	m.mu.Unlock()

	var sink Sink
	if m.sinks != nil {
		sink = m.sinks(key)
	}

	started, err := e.loop.Start(m.ctx, e.buffer, sink)
	m.logAudit(ctx, audit.EventMonitorStarted, key, err)
	if err != nil {
		m.mu.Lock()
		if current, ok := m.monitors[key]; ok && current == e && !e.loop.Running() {
			delete(m.monitors, key)
		}
		m.mu.Unlock()
		return nil, err
	}

	if started {
		m.logger.InfoContext(ctx, "monitor started",
			slog.String("session_id", key.SessionID),
			slog.String("candidate_id", key.CandidateID),
		)
	}

	return m.status(key, e), nil
}

// Stop halts the loop for key and forgets it. The final status carries the
// loop's local summary.
func (m *Manager) Stop(ctx context.Context, key Key) (*Status, error) {
	m.mu.Lock()
	e, ok := m.monitors[key]
	if ok {
		delete(m.monitors, key)
	}
	m.mu.Unlock()

	if !ok {
		return nil, domain.ErrMonitorNotRunning
	}

	e.loop.Stop()
	m.logAudit(ctx, audit.EventMonitorStopped, key, nil)
	m.logger.InfoContext(ctx, "monitor stopped",
		slog.String("session_id", key.SessionID),
		slog.String("candidate_id", key.CandidateID),
		slog.Uint64("cycles", e.loop.Cycles()),
	)

	return m.status(key, e), nil
}

// PushFrame hands the latest client frame to a running monitor
func (m *Manager) PushFrame(key Key, frame []byte) error {
	if len(frame) == 0 {
		return domain.ErrInvalidImage.WithError(errors.New("empty frame"))
	}

	m.mu.Lock()
	e, ok := m.monitors[key]
	m.mu.Unlock()

	if !ok {
		return domain.ErrMonitorNotRunning
	}
	e.buffer.Push(frame)
	return nil
}

func (m *Manager) Status(key Key) (*Status, error) {
	m.mu.Lock()
	e, ok := m.monitors[key]
	m.mu.Unlock()

	if !ok {
		return nil, domain.ErrMonitorNotRunning
	}
	return m.status(key, e), nil
}

// Active lists the keys of every running monitor
func (m *Manager) Active() []Key {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]Key, 0, len(m.monitors))
	for k := range m.monitors {
		keys = append(keys, k)
	}
	return keys
}

// AnalyzeOnce runs one detection cycle over frame outside any loop and
// delivers the reading to the key's sink.
func (m *Manager) AnalyzeOnce(ctx context.Context, key Key, frame []byte) (domain.Reading, error) {
	if len(frame) == 0 {
		return domain.Reading{}, domain.ErrInvalidImage.WithError(errors.New("empty frame"))
	}
	if err := m.source.Health(ctx); err != nil {
		return domain.Reading{}, domain.ErrDetectionUnavailable.WithError(err)
	}

	start := time.Now()
	reading := m.extractor.AnalyzeFrame(ctx, m.source, frame)
	m.metrics.ObserveCycle(time.Since(start))
	m.metrics.IncrementFrames(reading.Degraded())

	if m.sinks != nil {
		if sink := m.sinks(key); sink != nil {
			sink(ctx, reading)
		}
	}
	return reading, nil
}

// ReapIdle stops monitors whose buffer has not received a frame for timeout
func (m *Manager) ReapIdle(ctx context.Context, now time.Time, timeout time.Duration) []Key {
	m.mu.Lock()
	var idle []Key
	for key, e := range m.monitors {
		if now.Sub(e.buffer.LastActivity()) > timeout {
			idle = append(idle, key)
		}
	}
	m.mu.Unlock()

	for _, key := range idle {
		if _, err := m.Stop(ctx, key); err == nil {
			m.logger.InfoContext(ctx, "idle monitor reaped",
				slog.String("session_id", key.SessionID),
				slog.String("candidate_id", key.CandidateID),
				slog.Duration("timeout", timeout),
			)
		}
	}
	return idle
}

// Shutdown stops every loop and waits for in-flight cycles, so no sink runs
// after it returns unless ctx expired first.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	entries := m.monitors
	m.monitors = make(map[Key]*entry)
	m.mu.Unlock()

	for key, e := range entries {
		e.loop.Stop()
		m.logAudit(ctx, audit.EventMonitorStopped, key, nil)
	}

	var errs []error
	for key, e := range entries {
		if _, err := e.loop.StopAndWait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("monitor %s: %w", key, err))
		}
	}

	m.cancel()
	return errors.Join(errs...)
}

func (m *Manager) status(key Key, e *entry) *Status {
	return &Status{
		SessionID:    key.SessionID,
		CandidateID:  key.CandidateID,
		Running:      e.loop.Running(),
		Cycles:       e.loop.Cycles(),
		Awaiting:     e.loop.AwaitingCycles(),
		StartedAt:    e.loop.StartedAt(),
		LastFrameAt:  e.buffer.LastFrameAt(),
		LastReading:  e.loop.LastReading(),
		LocalSummary: e.loop.Log().Summary(),
	}
}

func (m *Manager) logAudit(ctx context.Context, eventType audit.EventType, key Key, err error) {
	event := audit.Event{
		EventType:   eventType,
		SessionID:   key.SessionID,
		CandidateID: key.CandidateID,
		Provider:    m.source.Name(),
	}.Outcome(err)
	if logErr := m.audit.Log(ctx, event); logErr != nil {
		m.logger.WarnContext(ctx, "audit log failed", slog.String("error", fmt.Sprint(logErr)))
	}
}
