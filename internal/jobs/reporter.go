// Package jobs runs background work: the periodic review report.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"feedbacktriage/internal/models"
)

// ReportTrendDays is the sentiment window included in each report.
const ReportTrendDays = 7

// Report run outcomes.
const (
	OutcomeWritten = "written"
	OutcomeFailed  = "failed"
)

// MetricsSource supplies the report aggregations.
type MetricsSource interface {
	Accuracy(ctx context.Context) (models.AccuracyMetrics, error)
	UrgencyBreakdown(ctx context.Context) (models.UrgencyBreakdown, error)
	SentimentTrend(ctx context.Context, days int) ([]models.SentimentTrend, error)
}

// ReportNotifier delivers the report summary.
type ReportNotifier interface {
	Report(ctx context.Context, report *models.Report, path string) error
}

// ReportObserver counts report runs.
type ReportObserver interface {
	ObserveReport(outcome string)
}

// Reporter builds review reports on a fixed interval or on demand.
type Reporter struct {
	metrics  MetricsSource
	notifier ReportNotifier
	dir      string
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
	observer ReportObserver

	runMu sync.Mutex // one run at a time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithReportClock sets the clock used for generated_at and file names.
func WithReportClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) { r.now = now }
}

// WithReportObserver counts runs by outcome.
func WithReportObserver(o ReportObserver) ReporterOption {
	return func(r *Reporter) { r.observer = o }
}

// NewReporter creates a Reporter writing into dir. A nil notifier skips the
// summary step.
func NewReporter(metrics MetricsSource, notifier ReportNotifier, dir string, interval time.Duration, logger *zap.Logger, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		metrics:  metrics,
		notifier: notifier,
		dir:      dir,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the periodic loop. It is a no-op when the interval is not
// positive or the loop is already running.
func (r *Reporter) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("periodic reports disabled")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)
}

func (r *Reporter) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	r.logger.Info("reporter started", zap.Duration("interval", r.interval), zap.String("dir", r.dir))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reporter stopped")
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("scheduled report failed", zap.Error(err))
			}
		}
	}
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run builds one report, writes it and sends the summary. It returns the
// written file path. A notification failure is logged and does not fail
// the run.
func (r *Reporter) Run(ctx context.Context) (string, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	report, path, err := r.run(ctx)
	if err != nil {
		r.observe(OutcomeFailed)
		return "", err
	}
	r.observe(OutcomeWritten)

	if r.notifier != nil {
		if err := r.notifier.Report(ctx, report, path); err != nil {
			r.logger.Error("report summary delivery failed", zap.String("path", path), zap.Error(err))
		}
	}
	return path, nil
}

func (r *Reporter) run(ctx context.Context) (*models.Report, string, error) {
	started := r.now().UTC()
	r.logger.Info("building review report")

	report, err := r.snapshot(ctx, started)
	if err != nil {
		return nil, "", fmt.Errorf("failed to compute report metrics: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode report: %w", err)
	}

	name := fmt.Sprintf("weekly_report_%s.json", started.Format("20060102_150405"))
	path, err := writeAtomic(ctx, r.dir, name, data)
	if err != nil {
		return nil, "", err
	}

	r.logger.Info("review report saved",
		zap.String("path", path),
		zap.Int64("processed", report.Accuracy.TotalProcessed),
		zap.Float64("overall_accuracy", report.Accuracy.OverallAccuracy))
	return report, path, nil
}

// snapshot computes the three aggregations concurrently.
func (r *Reporter) snapshot(ctx context.Context, at time.Time) (*models.Report, error) {
	report := &models.Report{GeneratedAt: at}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		acc, err := r.metrics.Accuracy(gctx)
		report.Accuracy = acc
		return err
	})
	g.Go(func() error {
		urg, err := r.metrics.UrgencyBreakdown(gctx)
		report.UrgencyBreakdown = urg
		return err
	})
	g.Go(func() error {
		trend, err := r.metrics.SentimentTrend(gctx, ReportTrendDays)
		report.SentimentTrend = trend
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if report.SentimentTrend == nil {
		report.SentimentTrend = []models.SentimentTrend{}
	}
	return report, nil
}

// writeAtomic writes data to dir/name through a synced temp file and a
// rename. The temp file is removed on any failure, including cancellation
// before the rename.
func writeAtomic(ctx context.Context, dir, name string, data []byte) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp report: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}

	path = filepath.Join(dir, name)
	if err = os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}
	return path, nil
}

func (r *Reporter) observe(outcome string) {
	if r.observer != nil {
		r.observer.ObserveReport(outcome)
	}
}
