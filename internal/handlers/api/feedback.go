package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"feedbacktriage/internal/db"
	"feedbacktriage/internal/ledger"
	"feedbacktriage/internal/middleware"
	"feedbacktriage/internal/models"
	"feedbacktriage/internal/triage"
	"feedbacktriage/internal/validation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// FeedbackHandler serves feedback records and their overrides.
type FeedbackHandler struct {
	svc    *triage.Service
	logger *zap.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(svc *triage.Service, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{svc: svc, logger: logger}
}

// feedbackList is the list response payload.
type feedbackList struct {
	Feedbacks []models.Feedback `json:"feedbacks"`
	Total     int64             `json:"total"`
}

// Create classifies and stores a new feedback record.
func (h *FeedbackHandler) Create(c fiber.Ctx) error {
	var req models.CreateFeedbackRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	validation.NormalizeCreate(&req)
	if err := validation.Struct(req); err != nil {
		return jsonValidationError(c, err)
	}

	requestID := requestid.FromContext(c)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	fb, err := h.svc.Create(c.Context(), req, requestID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to create feedback")
	}

	return jsonCreated(c, fb)
}

// List returns a filtered page of feedback records, newest first.
func (h *FeedbackHandler) List(c fiber.Ctx) error {
	limit, err := intQuery(c, "limit", defaultPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		return jsonError(c, fiber.StatusUnprocessableEntity, "limit must be between 1 and 100")
	}
	skip, err := intQuery(c, "skip", 0)
	if err != nil || skip < 0 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "skip must be a non-negative integer")
	}

	unresolvedOnly := false
	if raw := c.Query("unresolved_only"); raw != "" {
		unresolvedOnly, err = strconv.ParseBool(raw)
		if err != nil {
			return jsonError(c, fiber.StatusUnprocessableEntity, "unresolved_only must be a boolean")
		}
	}

	filter := models.FeedbackFilter{
		Urgency:        strings.ToLower(strings.TrimSpace(c.Query("urgency"))),
		Category:       strings.TrimSpace(c.Query("category")),
		Sentiment:      strings.ToLower(strings.TrimSpace(c.Query("sentiment"))),
		UnresolvedOnly: unresolvedOnly,
		Skip:           skip,
		Limit:          limit,
	}

	items, total, err := h.svc.List(c.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list feedback", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to list feedback")
	}
	if items == nil {
		items = []models.Feedback{}
	}

	return jsonSuccess(c, feedbackList{Feedbacks: items, Total: total})
}

// Get returns a single feedback record.
func (h *FeedbackHandler) Get(c fiber.Ctx) error {
	id, ok := feedbackID(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "feedback not found")
	}

	fb, err := h.svc.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrFeedbackNotFound) {
			return jsonError(c, fiber.StatusNotFound, "feedback not found")
		}
		h.logger.Error("failed to fetch feedback", zap.String("feedback_id", id.String()), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch feedback")
	}

	return jsonSuccess(c, fb)
}

// Override applies a reviewer correction. With reviewer auth enabled the
// verified identity replaces overridden_by from the body.
func (h *FeedbackHandler) Override(c fiber.Ctx) error {
	id, ok := feedbackID(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "feedback not found")
	}

	var req models.OverrideRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if reviewer, ok := middleware.Reviewer(c); ok {
		req.OverriddenBy = reviewer
	}

	validation.NormalizeOverride(&req)
	if err := validation.Struct(req); err != nil {
		return jsonValidationError(c, err)
	}

	fb, err := h.svc.ApplyOverride(c.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrFeedbackNotFound):
			return jsonError(c, fiber.StatusNotFound, "feedback not found")
		case errors.Is(err, ledger.ErrInvalidField), errors.Is(err, ledger.ErrInvalidValue):
			return jsonError(c, fiber.StatusUnprocessableEntity, err.Error())
		}
		h.logger.Error("failed to apply override", zap.String("feedback_id", id.String()), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to apply override")
	}

	return jsonSuccess(c, fb)
}

// Overrides lists the corrections of one record in the order they were made.
func (h *FeedbackHandler) Overrides(c fiber.Ctx) error {
	id, ok := feedbackID(c)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "feedback not found")
	}

	overrides, err := h.svc.Overrides(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrFeedbackNotFound) {
			return jsonError(c, fiber.StatusNotFound, "feedback not found")
		}
		h.logger.Error("failed to list overrides", zap.String("feedback_id", id.String()), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to list overrides")
	}
	if overrides == nil {
		overrides = []models.Override{}
	}

	return jsonSuccess(c, overrides)
}

// feedbackID parses the :id param. A malformed id is reported as not found.
func feedbackID(c fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func intQuery(c fiber.Ctx, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
