package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/alert"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/service"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/ws"
)

// AnalyticsService is implemented by service.AnalyticsService
type AnalyticsService interface {
	SubmitEvent(ctx context.Context, sessionID, candidateID string, event domain.AnalyticsEvent) (*domain.SessionAnalytics, error)
	GetAnalytics(ctx context.Context, sessionID, candidateID string) (*service.AnalyticsReport, error)
	ListSession(ctx context.Context, sessionID string) ([]service.AnalyticsReport, error)
	Finalize(ctx context.Context, sessionID, candidateID string) (*domain.SessionAnalytics, error)
}

// AlertDispatcher is implemented by alert.Dispatcher
type AlertDispatcher interface {
	Dispatch(ctx context.Context, sessionID, candidateID string, reading domain.AntiCheatReading) []*alert.Alert
}

// LiveFeed is implemented by ws.Hub
type LiveFeed interface {
	Broadcast(sessionID string, eventType ws.EventType, data any)
}

type AnalyticsHandler struct {
	service AnalyticsService
	alerts  AlertDispatcher
	feed    LiveFeed
	logger  *slog.Logger
}

// NewAnalyticsHandler wires the handler. alerts and feed may be nil.
func NewAnalyticsHandler(service AnalyticsService, alerts AlertDispatcher, feed LiveFeed, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		alerts:  alerts,
		feed:    feed,
		logger:  logger,
	}
}

// SessionAnalyticsResponse lists every candidate of a session
type SessionAnalyticsResponse struct {
	SessionID  string                    `json:"session_id"`
	Candidates []service.AnalyticsReport `json:"candidates"`
}

// SubmitEvent POST /v1/sessions/:session_id/candidates/:candidate_id/events
func (h *AnalyticsHandler) SubmitEvent(c *fiber.Ctx) error {
	sessionID, candidateID := c.Params("session_id"), c.Params("candidate_id")

	var event domain.AnalyticsEvent
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	record, err := h.service.SubmitEvent(c.Context(), sessionID, candidateID, event)
	if err != nil {
		return err
	}

	if h.alerts != nil && event.AntiCheat != nil {
		h.alerts.Dispatch(c.Context(), sessionID, candidateID, *event.AntiCheat)
	}

	return c.JSON(record)
}

// Get GET /v1/sessions/:session_id/candidates/:candidate_id/analytics
func (h *AnalyticsHandler) Get(c *fiber.Ctx) error {
	report, err := h.service.GetAnalytics(c.Context(), c.Params("session_id"), c.Params("candidate_id"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// List GET /v1/sessions/:session_id/analytics
func (h *AnalyticsHandler) List(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")

	reports, err := h.service.ListSession(c.Context(), sessionID)
	if err != nil {
		return err
	}
	if reports == nil {
		reports = []service.AnalyticsReport{}
	}

	return c.JSON(SessionAnalyticsResponse{
		SessionID:  sessionID,
		Candidates: reports,
	})
}

// Finalize POST /v1/sessions/:session_id/candidates/:candidate_id/finalize
func (h *AnalyticsHandler) Finalize(c *fiber.Ctx) error {
	sessionID, candidateID := c.Params("session_id"), c.Params("candidate_id")

	record, err := h.service.Finalize(c.Context(), sessionID, candidateID)
	if err != nil {
		return err
	}

	if h.feed != nil {
		h.feed.Broadcast(sessionID, ws.EventAnalyticsFinalized, fiber.Map{
			"candidate_id": candidateID,
			"summary":      record.Summary,
		})
	}

	return c.JSON(record)
}
