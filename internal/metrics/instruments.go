package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Instruments holds the event counters fed by the analyzer, ledger, fanout hub
// and reporter.
type Instruments struct {
	classifierAttempts *prometheus.CounterVec
	overrides          *prometheus.CounterVec
	deliveries         *prometheus.CounterVec
	subscribers        prometheus.Gauge
	reports            *prometheus.CounterVec
}

// Register creates the instruments and the engine collector on reg.
func Register(reg prometheus.Registerer, engine *Engine, logger *zap.Logger) (*Instruments, error) {
	in := &Instruments{
		classifierAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_triage_classifier_attempts_total",
			Help: "Classifier attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_triage_overrides_total",
			Help: "Reviewer overrides by analysis field",
		}, []string{"field"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_triage_fanout_deliveries_total",
			Help: "Realtime event deliveries by outcome",
		}, []string{"outcome"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedback_triage_fanout_subscribers",
			Help: "Currently registered realtime subscribers",
		}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_triage_reports_total",
			Help: "Review report runs by outcome",
		}, []string{"outcome"}),
	}

	collectors := []prometheus.Collector{
		in.classifierAttempts,
		in.overrides,
		in.deliveries,
		in.subscribers,
		in.reports,
	}
	if engine != nil {
		collectors = append(collectors, NewCollector(engine, logger, 10*time.Second))
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// ObserveAttempt counts one classifier attempt.
func (in *Instruments) ObserveAttempt(provider, outcome string) {
	in.classifierAttempts.WithLabelValues(provider, outcome).Inc()
}

// ObserveOverride counts one committed override.
func (in *Instruments) ObserveOverride(field string) {
	in.overrides.WithLabelValues(field).Inc()
}

// ObserveDelivery counts one fanout delivery.
func (in *Instruments) ObserveDelivery(outcome string) {
	in.deliveries.WithLabelValues(outcome).Inc()
}

// SetSubscribers records the current subscriber count.
func (in *Instruments) SetSubscribers(n int) {
	in.subscribers.Set(float64(n))
}

// ObserveReport counts one report run.
func (in *Instruments) ObserveReport(outcome string) {
	in.reports.WithLabelValues(outcome).Inc()
}
