// Package ledger records reviewer corrections to a record's analysis.
//
// Corrections are append-only. The effective value of a field is never
// written; it is derived from the latest override for that field, so the
// ledger and the effective analysis cannot disagree.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feedbacktriage/internal/models"
	"feedbacktriage/internal/validation"
)

var (
	ErrInvalidField = errors.New("invalid override field")
	ErrInvalidValue = errors.New("invalid override value")
)

// Store appends overrides atomically. AppendOverride must serialize calls
// for the same record and write nothing when build fails.
type Store interface {
	AppendOverride(ctx context.Context, id uuid.UUID, build func(current *models.Feedback) (models.Override, error)) (*models.Feedback, error)
	ListOverrides(ctx context.Context, id uuid.UUID) ([]models.Override, error)
}

// Observer is notified after every committed override.
type Observer interface {
	ObserveOverride(field string)
}

// Ledger applies and lists overrides.
type Ledger struct {
	store    Store
	logger   *zap.Logger
	observer Observer
}

// New creates a Ledger. observer may be nil.
func New(store Store, logger *zap.Logger, observer Observer) *Ledger {
	return &Ledger{store: store, logger: logger, observer: observer}
}

// Apply appends a correction of field to newValue and returns the updated record.
// old_value is the effective value at the moment the record lock is held, so
// concurrent corrections each see their predecessor.
func (l *Ledger) Apply(ctx context.Context, id uuid.UUID, field, newValue, reason, actor string) (*models.Feedback, error) {
	if !models.IsAnalysisField(field) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	if err := validation.OverrideValue(field, newValue); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	fb, err := l.store.AppendOverride(ctx, id, func(current *models.Feedback) (models.Override, error) {
		return models.Override{
			Field:        field,
			OldValue:     current.EffectiveValue(field),
			NewValue:     newValue,
			Reason:       reason,
			OverriddenBy: actor,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	last := fb.Overrides[len(fb.Overrides)-1]
	l.logger.Info("override applied",
		zap.String("feedback_id", id.String()),
		zap.String("field", field),
		zap.Stringp("old_value", last.OldValue),
		zap.String("new_value", newValue),
		zap.String("overridden_by", actor),
		zap.Int("ledger_length", len(fb.Overrides)))
	if fb.Analysis() == nil {
		l.logger.Warn("override recorded on record without analysis",
			zap.String("feedback_id", id.String()))
	}
	if l.observer != nil {
		l.observer.ObserveOverride(field)
	}

	return fb, nil
}

// Overrides returns the ledger of id in insertion order.
func (l *Ledger) Overrides(ctx context.Context, id uuid.UUID) ([]models.Override, error) {
	return l.store.ListOverrides(ctx, id)
}
