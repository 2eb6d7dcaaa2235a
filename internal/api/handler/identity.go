package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/identity"
)

// IdentityService is implemented by service.IdentityService
type IdentityService interface {
	Enroll(ctx context.Context, candidateID string, image []byte) (*domain.CandidateReference, error)
	Verify(ctx context.Context, sessionID, candidateID string, live, reference []byte) (identity.Result, error)
	History(ctx context.Context, sessionID, candidateID string) ([]domain.IdentityCheck, error)
	DeleteReference(ctx context.Context, candidateID string) error
}

type IdentityHandler struct {
	service IdentityService
	logger  *slog.Logger
}

func NewIdentityHandler(service IdentityService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{
		service: service,
		logger:  logger,
	}
}

// IdentityHistoryResponse lists recorded verification attempts
type IdentityHistoryResponse struct {
	SessionID   string                 `json:"session_id"`
	CandidateID string                 `json:"candidate_id"`
	Checks      []domain.IdentityCheck `json:"checks"`
}

// Enroll PUT /v1/candidates/:candidate_id/reference
func (h *IdentityHandler) Enroll(c *fiber.Ctx) error {
	image, err := extractImage(c, "image", true)
	if err != nil {
		return err
	}

	ref, err := h.service.Enroll(c.Context(), c.Params("candidate_id"), image)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(ref)
}

// DeleteReference DELETE /v1/candidates/:candidate_id/reference (LGPD)
func (h *IdentityHandler) DeleteReference(c *fiber.Ctx) error {
	if err := h.service.DeleteReference(c.Context(), c.Params("candidate_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Verify POST /v1/sessions/:session_id/candidates/:candidate_id/identity
func (h *IdentityHandler) Verify(c *fiber.Ctx) error {
	live, err := extractImage(c, "image", true)
	if err != nil {
		return err
	}
	reference, err := extractImage(c, "reference", false)
	if err != nil {
		return err
	}

	result, err := h.service.Verify(c.Context(), c.Params("session_id"), c.Params("candidate_id"), live, reference)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// History GET /v1/sessions/:session_id/candidates/:candidate_id/identity
func (h *IdentityHandler) History(c *fiber.Ctx) error {
	sessionID, candidateID := c.Params("session_id"), c.Params("candidate_id")

	checks, err := h.service.History(c.Context(), sessionID, candidateID)
	if err != nil {
		return err
	}
	if checks == nil {
		checks = []domain.IdentityCheck{}
	}

	return c.JSON(IdentityHistoryResponse{
		SessionID:   sessionID,
		CandidateID: candidateID,
		Checks:      checks,
	})
}
