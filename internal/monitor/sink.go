package monitor

import (
	"context"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

// Ingester persists readings. service.AnalyticsService satisfies it.
type Ingester interface {
	SubmitEvent(ctx context.Context, sessionID, candidateID string, event domain.AnalyticsEvent) (*domain.SessionAnalytics, error)
}

// IngestSink submits every reading as one event carrying all four signals.
// Persistence failures are logged and do not stop the loop.
func IngestSink(ingester Ingester, key Key, logger *slog.Logger) Sink {
	return func(ctx context.Context, reading domain.Reading) {
		if _, err := ingester.SubmitEvent(ctx, key.SessionID, key.CandidateID, reading.Event()); err != nil {
			logger.WarnContext(ctx, "failed to persist reading",
				slog.String("session_id", key.SessionID),
				slog.String("candidate_id", key.CandidateID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Broadcaster publishes readings to live subscribers. ws.Hub satisfies it.
type Broadcaster interface {
	BroadcastReading(sessionID, candidateID string, reading domain.Reading)
}

func BroadcastSink(b Broadcaster, key Key) Sink {
	return func(_ context.Context, reading domain.Reading) {
		b.BroadcastReading(key.SessionID, key.CandidateID, reading)
	}
}

// Fanout delivers each reading to every non-nil sink in order
func Fanout(sinks ...Sink) Sink {
	return func(ctx context.Context, reading domain.Reading) {
		for _, s := range sinks {
			if s != nil {
				s(ctx, reading)
			}
		}
	}
}
