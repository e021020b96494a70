// Package metrics computes accuracy, urgency and sentiment statistics from
// stored records and exports them to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedbacktriage/internal/models"
)

// ErrInvalidWindow is returned for a non-positive trend window.
var ErrInvalidWindow = errors.New("days must be positive")

// Store is the read-only aggregate surface of the record store.
// All values are evaluated against the effective analysis.
type Store interface {
	CountFeedback(ctx context.Context, f models.CountFilter) (int64, error)
	DistinctCategories(ctx context.Context) ([]string, error)
	CountByUrgency(ctx context.Context) (map[string]int64, error)
	CountSentimentByDay(ctx context.Context, from, to time.Time) ([]models.SentimentDayCount, error)
}

// Engine runs the aggregations. Each call queries the store afresh;
// nothing is cached and calls are independent of each other.
type Engine struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source for the trend window.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine.
func NewEngine(store Store, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// accuracy is 1 - overridden/processed, or 1 when nothing was processed.
func accuracy(processed, overridden int64) float64 {
	if processed == 0 {
		return 1.0
	}
	return 1.0 - float64(overridden)/float64(processed)
}

// Accuracy measures how often reviewers corrected a successful analysis.
// Any override counts, including one that re-confirms the original value.
func (e *Engine) Accuracy(ctx context.Context) (models.AccuracyMetrics, error) {
	processed, err := e.store.CountFeedback(ctx, models.CountFilter{Processed: true})
	if err != nil {
		return models.AccuracyMetrics{}, err
	}
	overridden, err := e.store.CountFeedback(ctx, models.CountFilter{Processed: true, Overridden: true})
	if err != nil {
		return models.AccuracyMetrics{}, err
	}

	categories, err := e.store.DistinctCategories(ctx)
	if err != nil {
		return models.AccuracyMetrics{}, err
	}

	byCategory := make(map[string]float64, len(categories))
	for _, category := range categories {
		c := category
		catProcessed, err := e.store.CountFeedback(ctx, models.CountFilter{Processed: true, Category: &c})
		if err != nil {
			return models.AccuracyMetrics{}, err
		}
		if catProcessed == 0 {
			continue
		}
		catOverridden, err := e.store.CountFeedback(ctx, models.CountFilter{Processed: true, Overridden: true, Category: &c})
		if err != nil {
			return models.AccuracyMetrics{}, err
		}
		byCategory[category] = accuracy(catProcessed, catOverridden)
	}

	m := models.AccuracyMetrics{
		TotalProcessed:  processed,
		TotalOverridden: overridden,
		OverallAccuracy: accuracy(processed, overridden),
		ByCategory:      byCategory,
	}
	e.logger.Debug("accuracy computed",
		zap.Float64("overall_accuracy", m.OverallAccuracy),
		zap.Int64("processed", processed),
		zap.Int64("overridden", overridden))
	return m, nil
}

// UrgencyBreakdown counts records per urgency level. Total is the sum of the three.
func (e *Engine) UrgencyBreakdown(ctx context.Context) (models.UrgencyBreakdown, error) {
	counts, err := e.store.CountByUrgency(ctx)
	if err != nil {
		return models.UrgencyBreakdown{}, err
	}

	b := models.UrgencyBreakdown{
		Low:    counts[models.UrgencyLow],
		Medium: counts[models.UrgencyMedium],
		High:   counts[models.UrgencyHigh],
	}
	b.Total = b.Low + b.Medium + b.High
	return b, nil
}

// SentimentTrend returns per-day sentiment counts for records created in
// [now-days, now], UTC, ascending by date. Days without records are omitted
// rather than reported as zero rows.
func (e *Engine) SentimentTrend(ctx context.Context, days int) ([]models.SentimentTrend, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, days)
	}

	to := e.now().UTC()
	from := to.AddDate(0, 0, -days)

	rows, err := e.store.CountSentimentByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}

	trend := mergeDays(rows)
	e.logger.Debug("sentiment trend computed",
		zap.Int("days", days),
		zap.Int("points", len(trend)))
	return trend, nil
}

// mergeDays folds (date, sentiment, count) groups into one row per date.
// Input must be ordered by date.
func mergeDays(rows []models.SentimentDayCount) []models.SentimentTrend {
	trend := []models.SentimentTrend{}
	for _, r := range rows {
		if len(trend) == 0 || trend[len(trend)-1].Date != r.Date {
			trend = append(trend, models.SentimentTrend{Date: r.Date})
		}
		day := &trend[len(trend)-1]
		switch r.Sentiment {
		case models.SentimentPositive:
			day.Positive += r.Count
		case models.SentimentNeutral:
			day.Neutral += r.Count
		case models.SentimentNegative:
			day.Negative += r.Count
		}
	}

	// A date whose only groups carried unknown sentiments has no counts.
	out := trend[:0]
	for _, day := range trend {
		if day.Total() > 0 {
			out = append(out, day)
		}
	}
	return out
}
