package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultQueueSize   = 256
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// Worker delivers queued events off the detection loop goroutine, retrying
// failed deliveries with exponential backoff.
type Worker struct {
	service     *Service
	logger      *slog.Logger
	queue       chan Job
	maxAttempts int
	baseDelay   time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

type WorkerOption func(*Worker)

func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.baseDelay = d
	}
}

func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		w.queue = make(chan Job, n)
	}
}

func NewWorker(service *Service, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		service:     service,
		logger:      logger.With("component", "webhook_worker"),
		queue:       make(chan Job, defaultQueueSize),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enqueue stamps and queues an event. Returns false when the queue is full
// and the event was dropped.
func (w *Worker) Enqueue(event EventPayload) bool {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = w.now().UTC()
	}

	select {
	case w.queue <- Job{Payload: event}:
		return true
	default:
		w.logger.Warn("webhook queue full, dropping event",
			"event_type", event.Type,
			"session_id", event.SessionID,
		)
		return false
	}
}

// Run delivers jobs until ctx is done or Stop is called
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("webhook worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook worker stopped")
			return
		case <-w.stopCh:
			w.logger.Info("webhook worker stopped")
			return
		case job := <-w.queue:
			w.processJob(ctx, &job)
		}
	}
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *Worker) processJob(ctx context.Context, job *Job) {
	for {
		err := w.service.Send(ctx, job.Payload)
		job.Attempts++
		if err == nil {
			w.logger.Debug("webhook delivered",
				"delivery_id", job.Payload.ID,
				"event_type", job.Payload.Type,
				"attempts", job.Attempts,
			)
			return
		}

		if job.Attempts >= w.maxAttempts {
			w.logger.Warn("webhook delivery failed",
				"delivery_id", job.Payload.ID,
				"event_type", job.Payload.Type,
				"attempts", job.Attempts,
				"error", err,
			)
			return
		}

		delay := time.Duration(1<<(job.Attempts-1)) * w.baseDelay
		w.logger.Info("webhook delivery scheduled for retry",
			"delivery_id", job.Payload.ID,
			"attempts", job.Attempts,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-time.After(delay):
		}
	}
}
