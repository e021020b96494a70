package api

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"feedbacktriage/internal/triage"
)

const (
	defaultTrendDays = 7
	maxTrendDays     = 90
)

// MetricsHandler serves the aggregate metrics.
type MetricsHandler struct {
	svc    *triage.Service
	logger *zap.Logger
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(svc *triage.Service, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{svc: svc, logger: logger}
}

// Accuracy returns overall and per-category accuracy.
func (h *MetricsHandler) Accuracy(c fiber.Ctx) error {
	m, err := h.svc.Accuracy(c.Context())
	if err != nil {
		return h.failed(c, "accuracy", err)
	}
	return jsonSuccess(c, m)
}

// UrgencyBreakdown returns counts per urgency level.
func (h *MetricsHandler) UrgencyBreakdown(c fiber.Ctx) error {
	b, err := h.svc.UrgencyBreakdown(c.Context())
	if err != nil {
		return h.failed(c, "urgency breakdown", err)
	}
	return jsonSuccess(c, b)
}

// SentimentTrend returns daily sentiment counts for ?days=1..90 (default 7).
func (h *MetricsHandler) SentimentTrend(c fiber.Ctx) error {
	days, err := intQuery(c, "days", defaultTrendDays)
	if err != nil || days < 1 || days > maxTrendDays {
		return jsonError(c, fiber.StatusUnprocessableEntity, "days must be between 1 and 90")
	}

	trend, err := h.svc.SentimentTrend(c.Context(), days)
	if err != nil {
		return h.failed(c, "sentiment trend", err)
	}
	return jsonSuccess(c, trend)
}

func (h *MetricsHandler) failed(c fiber.Ctx, metric string, err error) error {
	h.logger.Error("failed to compute metric", zap.String("metric", metric), zap.Error(err))
	return jsonError(c, fiber.StatusInternalServerError, "failed to compute "+metric)
}

// ReportRunner runs one review report and returns the written path.
type ReportRunner interface {
	Run(ctx context.Context) (string, error)
}

// ReportHandler triggers on-demand review reports.
type ReportHandler struct {
	reporter ReportRunner
	logger   *zap.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reporter ReportRunner, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reporter: reporter, logger: logger}
}

// Run builds a report now.
func (h *ReportHandler) Run(c fiber.Ctx) error {
	path, err := h.reporter.Run(c.Context())
	if err != nil {
		h.logger.Error("on-demand report failed", zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "failed to build report")
	}
	return jsonCreated(c, fiber.Map{"path": path})
}
