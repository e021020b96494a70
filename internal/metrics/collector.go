package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"feedbacktriage/internal/models"
)

var (
	accuracyDesc = prometheus.NewDesc(
		"feedback_triage_accuracy_ratio",
		"Share of processed feedback that no reviewer overrode",
		nil, nil,
	)
	categoryAccuracyDesc = prometheus.NewDesc(
		"feedback_triage_category_accuracy_ratio",
		"Accuracy per effective category",
		[]string{"category"}, nil,
	)
	processedDesc = prometheus.NewDesc(
		"feedback_triage_processed_records",
		"Feedback records with a classification attempt",
		nil, nil,
	)
	overriddenDesc = prometheus.NewDesc(
		"feedback_triage_overridden_records",
		"Successfully classified records with at least one override",
		nil, nil,
	)
	urgencyDesc = prometheus.NewDesc(
		"feedback_triage_urgency_records",
		"Feedback records by effective urgency level",
		[]string{"level"}, nil,
	)
)

// Collector reads the Engine on each scrape, so exported gauges always
// match what the API reports.
type Collector struct {
	engine  *Engine
	logger  *zap.Logger
	timeout time.Duration
}

// NewCollector creates a Collector bounded by timeout per scrape.
func NewCollector(engine *Engine, logger *zap.Logger, timeout time.Duration) *Collector {
	return &Collector{engine: engine, logger: logger, timeout: timeout}
}

// Describe sends the metric descriptors to the channel.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- accuracyDesc
	ch <- categoryAccuracyDesc
	ch <- processedDesc
	ch <- overriddenDesc
	ch <- urgencyDesc
}

// Collect runs the aggregations and emits them as gauges.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	acc, err := c.engine.Accuracy(ctx)
	if err != nil {
		c.logger.Error("failed to collect accuracy metrics", zap.Error(err))
	} else {
		ch <- prometheus.MustNewConstMetric(accuracyDesc, prometheus.GaugeValue, acc.OverallAccuracy)
		ch <- prometheus.MustNewConstMetric(processedDesc, prometheus.GaugeValue, float64(acc.TotalProcessed))
		ch <- prometheus.MustNewConstMetric(overriddenDesc, prometheus.GaugeValue, float64(acc.TotalOverridden))
		for category, ratio := range acc.ByCategory {
			ch <- prometheus.MustNewConstMetric(categoryAccuracyDesc, prometheus.GaugeValue, ratio, category)
		}
	}

	urgency, err := c.engine.UrgencyBreakdown(ctx)
	if err != nil {
		c.logger.Error("failed to collect urgency metrics", zap.Error(err))
		return
	}
	for level, n := range map[string]int64{
		models.UrgencyLow:    urgency.Low,
		models.UrgencyMedium: urgency.Medium,
		models.UrgencyHigh:   urgency.High,
	} {
		ch <- prometheus.MustNewConstMetric(urgencyDesc, prometheus.GaugeValue, float64(n), level)
	}
}
