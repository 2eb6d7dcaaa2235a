// Package alert turns anti-cheat alerts from detection cycles into
// debounced notifications.
package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/metrics"
)

const DefaultCooldown = 10 * time.Second

const (
	outcomeSent       = "sent"
	outcomeSuppressed = "suppressed"
	outcomeFailed     = "failed"
)

// Sender is satisfied by *Notifier
type Sender interface {
	Send(ctx context.Context, a *Alert) error
}

// Dispatcher notifies once per (session, candidate, alert type) per cooldown
// window. Persisted incidents are unaffected; only notifications are debounced.
type Dispatcher struct {
	debouncer Debouncer
	sender    Sender
	cooldown  time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Dispatcher)

func WithCooldown(d time.Duration) Option {
	return func(ds *Dispatcher) {
		if d > 0 {
			ds.cooldown = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(ds *Dispatcher) {
		ds.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(ds *Dispatcher) {
		ds.logger = logger
	}
}

func NewDispatcher(debouncer Debouncer, sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		debouncer: debouncer,
		sender:    sender,
		cooldown:  DefaultCooldown,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "alert_dispatcher")
	return d
}

// Dispatch sends every alert in the reading that is outside its cooldown
// window and returns the alerts that were sent.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID, candidateID string, reading domain.AntiCheatReading) []*Alert {
	var sent []*Alert

	for _, raw := range reading.Alerts {
		a := &Alert{
			ID:          uuid.New(),
			SessionID:   sessionID,
			CandidateID: candidateID,
			Type:        raw.Type,
			Severity:    raw.Severity,
			Message:     raw.Message,
			FaceCount:   reading.FaceCount,
			TriggeredAt: d.triggeredAt(reading),
		}

		allowed, err := d.debouncer.Allow(ctx, a.debounceKey(), d.cooldown)
		if err != nil {
			// Fails open
			d.logger.WarnContext(ctx, "debouncer unavailable, sending alert",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
			allowed = true
		}
		if !allowed {
			d.metrics.IncrementAlert(string(a.Type), outcomeSuppressed)
			continue
		}

		if err := d.sender.Send(ctx, a); err != nil {
			d.metrics.IncrementAlert(string(a.Type), outcomeFailed)
			continue
		}

		d.metrics.IncrementAlert(string(a.Type), outcomeSent)
		d.logger.InfoContext(ctx, "alert dispatched",
			slog.String("session_id", sessionID),
			slog.String("candidate_id", candidateID),
			slog.String("type", string(a.Type)),
			slog.String("severity", string(a.Severity)),
		)
		sent = append(sent, a)
	}

	return sent
}

// Sink adapts Dispatch to a detection loop sink signature
func (d *Dispatcher) Sink(sessionID, candidateID string) func(context.Context, domain.Reading) {
	return func(ctx context.Context, r domain.Reading) {
		d.Dispatch(ctx, sessionID, candidateID, r.AntiCheat)
	}
}

func (d *Dispatcher) triggeredAt(r domain.AntiCheatReading) time.Time {
	if !r.Timestamp.IsZero() {
		return r.Timestamp
	}
	return d.now().UTC()
}
