package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Reaper periodically stops monitors whose client stopped sending frames.
type Reaper struct {
	manager  *Manager
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
	done     chan struct{}
	stopOnce sync.Once
}

func NewReaper(manager *Manager, timeout time.Duration, logger *slog.Logger) *Reaper {
	interval := timeout / 4
	if interval < time.Second {
		interval = time.Second
	}

	return &Reaper{
		manager:  manager,
		timeout:  timeout,
		interval: interval,
		logger:   logger.With("component", "monitor_reaper"),
		done:     make(chan struct{}),
	}
}

// Start blocks until ctx is done or Stop is called
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("monitor reaper started", "interval", r.interval, "timeout", r.timeout)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("monitor reaper stopped")
			return
		case <-r.done:
			r.logger.Info("monitor reaper stopped")
			return
		case now := <-ticker.C:
			if reaped := r.manager.ReapIdle(ctx, now, r.timeout); len(reaped) > 0 {
				r.logger.Debug("reaped idle monitors", "count", len(reaped))
			}
		}
	}
}

func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}
