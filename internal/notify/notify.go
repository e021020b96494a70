// Package notify dispatches triage alerts and report summaries to the
// configured outbound channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"feedbacktriage/internal/models"
)

// Notifier is one outbound channel.
type Notifier interface {
	Name() string
	NotifyHighUrgency(ctx context.Context, fb *models.Feedback) error
	NotifyReport(ctx context.Context, report *models.Report, path string) error
}

// Dispatcher fans notifications out to every channel. Alerts are fire and
// forget; report summaries are delivered before Report returns.
type Dispatcher struct {
	channels []Notifier
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher over channels. Nil channels are skipped.
func NewDispatcher(logger *zap.Logger, timeout time.Duration, channels ...Notifier) *Dispatcher {
	d := &Dispatcher{logger: logger, timeout: timeout}
	for _, ch := range channels {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

// Channels returns the names of the configured channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// HighUrgency alerts every channel about fb when its effective urgency is
// high. It returns immediately; delivery runs detached from the caller's
// context and failures are only logged. It reports whether an alert was sent.
func (d *Dispatcher) HighUrgency(fb *models.Feedback) bool {
	a := fb.Analysis()
	if a == nil || a.UrgencyLevel != models.UrgencyHigh || len(d.channels) == 0 {
		return false
	}

	for _, ch := range d.channels {
		d.wg.Add(1)
		go func(ch Notifier) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			if err := ch.NotifyHighUrgency(ctx, fb); err != nil {
				d.logger.Error("high urgency alert failed",
					zap.String("channel", ch.Name()),
					zap.String("feedback_id", fb.ID.String()),
					zap.Error(err))
				return
			}
			d.logger.Info("high urgency alert sent",
				zap.String("channel", ch.Name()),
				zap.String("feedback_id", fb.ID.String()))
		}(ch)
	}
	return true
}

// Report sends the report summary to every channel concurrently and
// returns the joined channel errors.
func (d *Dispatcher) Report(ctx context.Context, report *models.Report, path string) error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, ch := range d.channels {
		wg.Add(1)
		go func(ch Notifier) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := ch.NotifyReport(ctx, report, path); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
				mu.Unlock()
			}
		}(ch)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Wait blocks until in-flight alerts finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
