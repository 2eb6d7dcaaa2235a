package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/webhook"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/ws"
)

// Channel delivers an alert to one destination
type Channel interface {
	Name() string
	Send(ctx context.Context, a *Alert) error
}

// Notifier fans an alert out to every channel. A failing channel does not
// stop delivery to the others.
type Notifier struct {
	channels []Channel
	logger   *slog.Logger
}

func NewNotifier(logger *slog.Logger, channels ...Channel) *Notifier {
	return &Notifier{
		channels: channels,
		logger:   logger,
	}
}

func (n *Notifier) Send(ctx context.Context, a *Alert) error {
	var errs []error

	for _, ch := range n.channels {
		if err := ch.Send(ctx, a); err != nil {
			n.logger.Error("failed to send to channel",
				"channel", ch.Name(),
				"session_id", a.SessionID,
				"alert_type", a.Type,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to send %d/%d notifications: %w", len(errs), len(n.channels), errors.Join(errs...))
	}

	return nil
}

// ErrWebhookQueueFull is returned when the delivery queue dropped the alert
var ErrWebhookQueueFull = errors.New("webhook queue full")

// WebhookChannel queues alerts for signed webhook delivery
type WebhookChannel struct {
	worker *webhook.Worker
}

func NewWebhookChannel(worker *webhook.Worker) *WebhookChannel {
	return &WebhookChannel{worker: worker}
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) Send(_ context.Context, a *Alert) error {
	ok := c.worker.Enqueue(webhook.EventPayload{
		ID:          a.ID,
		Type:        string(ws.EventAlert),
		SessionID:   a.SessionID,
		CandidateID: a.CandidateID,
		Data:        a,
		Timestamp:   a.TriggeredAt,
	})
	if !ok {
		return ErrWebhookQueueFull
	}
	return nil
}

// HubChannel pushes alerts to the session's live WebSocket feed
type HubChannel struct {
	hub *ws.Hub
}

func NewHubChannel(hub *ws.Hub) *HubChannel {
	return &HubChannel{hub: hub}
}

func (c *HubChannel) Name() string { return "ws" }

func (c *HubChannel) Send(_ context.Context, a *Alert) error {
	c.hub.Broadcast(a.SessionID, ws.EventAlert, a)
	return nil
}
