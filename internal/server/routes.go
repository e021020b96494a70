package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedbacktriage/internal/handlers/api"
	"feedbacktriage/internal/middleware"
	"feedbacktriage/internal/triage"
)

// Deps are the components the routes are served by.
type Deps struct {
	Service  *triage.Service
	Reporter api.ReportRunner
	Gatherer prometheus.Gatherer
	// Auth guards override requests when non-nil.
	Auth     *middleware.ReviewerAuth
	Features map[string]bool
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(deps Deps) {
	feedbackHandler := api.NewFeedbackHandler(deps.Service, s.logger)
	metricsHandler := api.NewMetricsHandler(deps.Service, s.logger)
	reportHandler := api.NewReportHandler(deps.Reporter, s.logger)
	healthHandler := api.NewHealthHandler(deps.Service, deps.Features)

	s.App.Get("/health", healthHandler.Health)
	if deps.Gatherer != nil {
		s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.App.Group("/api")

	v1.Post("/feedback", feedbackHandler.Create)
	v1.Get("/feedback", feedbackHandler.List)
	v1.Get("/feedback/:id", feedbackHandler.Get)
	if deps.Auth != nil {
		v1.Post("/feedback/:id/override", deps.Auth.RequireReviewer, feedbackHandler.Override)
	} else {
		v1.Post("/feedback/:id/override", feedbackHandler.Override)
	}
	v1.Get("/feedback/:id/overrides", feedbackHandler.Overrides)

	v1.Get("/metrics/accuracy", metricsHandler.Accuracy)
	v1.Get("/metrics/urgency-breakdown", metricsHandler.UrgencyBreakdown)
	v1.Get("/metrics/sentiment-trend", metricsHandler.SentimentTrend)

	if deps.Reporter != nil {
		v1.Post("/reports", reportHandler.Run)
	}
}
