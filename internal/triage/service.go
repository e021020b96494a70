// Package triage is the application facade: it ties classification,
// storage, corrections, metrics and notifications together.
package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feedbacktriage/internal/fanout"
	"feedbacktriage/internal/ledger"
	"feedbacktriage/internal/logging"
	"feedbacktriage/internal/metrics"
	"feedbacktriage/internal/models"
)

// persistTimeout bounds the store write and broadcast after classification.
const persistTimeout = 10 * time.Second

// Store is the record store surface the service reads and writes.
type Store interface {
	Ping(ctx context.Context) error
	InsertFeedback(ctx context.Context, fb *models.Feedback) error
	GetFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error)
	ListFeedback(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int64, error)
}

// Analyzer classifies one message.
type Analyzer interface {
	Classify(ctx context.Context, message, requestID string) (*models.Analysis, error)
	Model() string
}

// Broadcaster pushes events to live subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev fanout.Event) int
}

// Alerter sends fire-and-forget high-urgency alerts.
type Alerter interface {
	HighUrgency(fb *models.Feedback) bool
}

// Service implements the triage operations.
type Service struct {
	store    Store
	analyzer Analyzer
	ledger   *ledger.Ledger
	metrics  *metrics.Engine
	hub      Broadcaster
	alerts   Alerter
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBroadcaster publishes new records to live subscribers.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.hub = b }
}

// WithAlerter sends high-urgency alerts for new records.
func WithAlerter(a Alerter) Option {
	return func(s *Service) { s.alerts = a }
}

// New creates a Service.
func New(store Store, analyzer Analyzer, l *ledger.Ledger, m *metrics.Engine, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		analyzer: analyzer,
		ledger:   l,
		metrics:  m,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create classifies req.Message and stores the record. A classification
// failure is recorded on the record and never fails the call; only a store
// failure does. The request has already been validated.
func (s *Service) Create(ctx context.Context, req models.CreateFeedbackRequest, requestID string) (*models.Feedback, error) {
	log := s.logger.With(zap.String("request_id", requestID))
	log.Info("processing feedback",
		zap.String("email", logging.MaskEmail(req.Email)),
		zap.Int("message_len", len(req.Message)))

	fb := &models.Feedback{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Message:      req.Message,
	}

	analysis, err := s.analyzer.Classify(ctx, req.Message, requestID)
	if err != nil {
		msg := err.Error()
		failed := false
		fb.AnalysisError = &msg
		fb.AgentSuccess = &failed
		log.Warn("analysis failed, storing feedback without analysis", zap.Error(err))
	} else {
		ok := true
		fb.OriginalAnalysis = analysis
		fb.AgentSuccess = &ok
	}

	// The record is kept even if the caller went away during classification.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.store.InsertFeedback(persistCtx, fb); err != nil {
		log.Error("failed to save feedback", zap.Error(err))
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}
	log.Info("feedback saved",
		zap.String("feedback_id", fb.ID.String()),
		zap.Bool("agent_success", *fb.AgentSuccess))

	if s.hub != nil {
		s.hub.Broadcast(persistCtx, fanout.Event{Type: fanout.EventNewFeedback, Data: fb})
	}
	if s.alerts != nil && s.alerts.HighUrgency(fb) {
		log.Info("high urgency alert dispatched", zap.String("feedback_id", fb.ID.String()))
	}

	return fb, nil
}

// List returns a page of records and the total matching count.
func (s *Service) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int64, error) {
	return s.store.ListFeedback(ctx, filter)
}

// Get returns one record. db.ErrFeedbackNotFound when absent.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	return s.store.GetFeedback(ctx, id)
}

// ApplyOverride records a reviewer correction.
func (s *Service) ApplyOverride(ctx context.Context, id uuid.UUID, req models.OverrideRequest) (*models.Feedback, error) {
	return s.ledger.Apply(ctx, id, req.Field, req.NewValue, req.Reason, req.OverriddenBy)
}

// Overrides lists the corrections of one record in insertion order.
func (s *Service) Overrides(ctx context.Context, id uuid.UUID) ([]models.Override, error) {
	return s.ledger.Overrides(ctx, id)
}

// Accuracy computes the accuracy metrics.
func (s *Service) Accuracy(ctx context.Context) (models.AccuracyMetrics, error) {
	return s.metrics.Accuracy(ctx)
}

// UrgencyBreakdown counts records per urgency level.
func (s *Service) UrgencyBreakdown(ctx context.Context) (models.UrgencyBreakdown, error) {
	return s.metrics.UrgencyBreakdown(ctx)
}

// SentimentTrend returns daily sentiment counts over the last days.
func (s *Service) SentimentTrend(ctx context.Context, days int) ([]models.SentimentTrend, error) {
	return s.metrics.SentimentTrend(ctx, days)
}

// Ping checks the record store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Model names the classifier in use.
func (s *Service) Model() string {
	return s.analyzer.Model()
}
