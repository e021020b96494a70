package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"feedbacktriage/internal/models"
	"feedbacktriage/internal/triage"
)

// HealthHandler reports service readiness.
type HealthHandler struct {
	svc      *triage.Service
	features map[string]bool
}

// NewHealthHandler creates a new health handler. features lists the
// optional capabilities and whether each is enabled.
func NewHealthHandler(svc *triage.Service, features map[string]bool) *HealthHandler {
	return &HealthHandler{svc: svc, features: features}
}

// Health pings the record store. It answers 503 when the store is unreachable.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	resp := models.HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Model:    h.svc.Model(),
		Features: h.features,
	}
	status := fiber.StatusOK
	if err := h.svc.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = "disconnected"
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(resp)
}
