package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/monitor"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/ws"
)

// MonitorManager is implemented by monitor.Manager
type MonitorManager interface {
	Start(ctx context.Context, key monitor.Key) (*monitor.Status, error)
	Stop(ctx context.Context, key monitor.Key) (*monitor.Status, error)
	Status(key monitor.Key) (*monitor.Status, error)
	PushFrame(key monitor.Key, frame []byte) error
	AnalyzeOnce(ctx context.Context, key monitor.Key, frame []byte) (domain.Reading, error)
}

type MonitorHandler struct {
	manager MonitorManager
	feed    LiveFeed
	logger  *slog.Logger
}

// NewMonitorHandler wires the handler. feed may be nil.
func NewMonitorHandler(manager MonitorManager, feed LiveFeed, logger *slog.Logger) *MonitorHandler {
	return &MonitorHandler{
		manager: manager,
		feed:    feed,
		logger:  logger,
	}
}

func monitorKey(c *fiber.Ctx) monitor.Key {
	return monitor.Key{
		SessionID:   c.Params("session_id"),
		CandidateID: c.Params("candidate_id"),
	}
}

// Start POST /v1/sessions/:session_id/candidates/:candidate_id/monitor/start
func (h *MonitorHandler) Start(c *fiber.Ctx) error {
	key := monitorKey(c)
	status, err := h.manager.Start(c.Context(), key)
	if err != nil {
		return err
	}

	h.broadcast(key, ws.EventMonitorStarted, status)
	return c.JSON(status)
}

// Stop POST /v1/sessions/:session_id/candidates/:candidate_id/monitor/stop
func (h *MonitorHandler) Stop(c *fiber.Ctx) error {
	key := monitorKey(c)
	status, err := h.manager.Stop(c.Context(), key)
	if err != nil {
		return err
	}

	h.broadcast(key, ws.EventMonitorStopped, status)
	return c.JSON(status)
}

// Status GET /v1/sessions/:session_id/candidates/:candidate_id/monitor
func (h *MonitorHandler) Status(c *fiber.Ctx) error {
	status, err := h.manager.Status(monitorKey(c))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// PushFrame POST /v1/sessions/:session_id/candidates/:candidate_id/frames
func (h *MonitorHandler) PushFrame(c *fiber.Ctx) error {
	frame, err := extractFrame(c)
	if err != nil {
		return err
	}

	if err := h.manager.PushFrame(monitorKey(c), frame); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// Analyze POST /v1/sessions/:session_id/candidates/:candidate_id/analyze
func (h *MonitorHandler) Analyze(c *fiber.Ctx) error {
	frame, err := extractImage(c, "image", true)
	if err != nil {
		return err
	}

	reading, err := h.manager.AnalyzeOnce(c.Context(), monitorKey(c), frame)
	if err != nil {
		return err
	}
	return c.JSON(reading)
}

func (h *MonitorHandler) broadcast(key monitor.Key, eventType ws.EventType, status *monitor.Status) {
	if h.feed == nil {
		return
	}
	h.feed.Broadcast(key.SessionID, eventType, status)
}
