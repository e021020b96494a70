// Package analyzer turns a customer message into a validated Analysis by
// calling a classifier under a bounded retry policy.
package analyzer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"feedbacktriage/internal/classifier"
	"feedbacktriage/internal/config"
	"feedbacktriage/internal/models"
)

// PromptSource supplies the current prompt config.
type PromptSource interface {
	Current() config.PromptConfig
}

// Attempt outcomes reported to an Observer.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Observer is notified after every classifier attempt.
type Observer interface {
	ObserveAttempt(provider, outcome string)
}

// Analyzer wraps a Classifier with schema enforcement and retries.
type Analyzer struct {
	classifier classifier.Classifier
	prompts    PromptSource
	logger     *zap.Logger
	timeout    time.Duration
	observer   Observer
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithAttemptTimeout bounds each classifier call. Zero means no bound beyond ctx.
func WithAttemptTimeout(d time.Duration) Option {
	return func(a *Analyzer) { a.timeout = d }
}

// WithObserver reports attempt outcomes, e.g. to Prometheus.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) { a.observer = o }
}

// New creates an Analyzer.
func New(c classifier.Classifier, prompts PromptSource, logger *zap.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		classifier: c,
		prompts:    prompts,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Model returns the classifier name.
func (a *Analyzer) Model() string {
	return a.classifier.Name()
}

type state int

const (
	stateAttempting state = iota
	stateRetrying
	stateSucceeded
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateRetrying:
		return "retrying"
	case stateSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// Classify analyzes message. Attempts are sequential with no delay; an
// unusable reply is retried up to max_retries more times with the same
// message, any other failure ends the run at once.
//
// Errors are *ValidationFailure or *TransientFailure.
func (a *Analyzer) Classify(ctx context.Context, message, requestID string) (*models.Analysis, error) {
	cfg := a.prompts.Current()
	maxAttempts := cfg.MaxRetries + 1
	instruction := BuildInstruction(cfg)
	log := a.logger.With(zap.String("request_id", requestID))

	log.Info("starting analysis",
		zap.Int("message_length", len(message)),
		zap.String("prompt_version", cfg.Version),
		zap.Int("max_attempts", maxAttempts))

	var (
		st       = stateAttempting
		attempt  int
		result   *models.Analysis
		failure  error
		prompted = instruction
	)

	for st == stateAttempting || st == stateRetrying {
		if st == stateRetrying {
			prompted = instruction + retryReminder
		}
		attempt++
		log.Debug("classifier attempt", zap.Stringer("state", st), zap.Int("attempt", attempt))

		if err := ctx.Err(); err != nil {
			failure = &TransientFailure{Attempt: attempt, Err: err}
			st = stateFailed
			continue
		}

		raw, err := a.call(ctx, prompted, message)
		if err != nil && !errors.Is(err, classifier.ErrMalformedOutput) {
			a.observe(OutcomeError)
			log.Error("classifier call failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			failure = &TransientFailure{Attempt: attempt, Err: err}
			st = stateFailed
			continue
		}

		if err == nil {
			result, err = Decode(raw)
		}
		if err == nil {
			a.observe(OutcomeSuccess)
			log.Info("analysis succeeded",
				zap.Int("attempt", attempt),
				zap.String("sentiment", result.Sentiment),
				zap.String("urgency_level", result.UrgencyLevel),
				zap.String("category", result.Category))
			st = stateSucceeded
			continue
		}

		a.observe(OutcomeInvalid)
		log.Warn("analysis output rejected",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))

		if attempt >= maxAttempts {
			failure = &ValidationFailure{Attempts: attempt, Err: err}
			st = stateFailed
			continue
		}
		st = stateRetrying
	}

	if st == stateFailed {
		log.Error("analysis failed", zap.Int("attempts", attempt), zap.Error(failure))
		return nil, failure
	}
	return result, nil
}

func (a *Analyzer) call(ctx context.Context, instruction, message string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.classifier.Classify(ctx, instruction, message)
}

func (a *Analyzer) observe(outcome string) {
	if a.observer != nil {
		a.observer.ObserveAttempt(a.classifier.Name(), outcome)
	}
}
