package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"feedbacktriage/internal/models"
)

// overrideColumns is the standard column list for override queries.
const overrideColumns = `id, feedback_id, field, old_value, new_value, reason, overridden_by, overridden_at`

// scanOverrides scans multiple rows into a slice of Overrides.
func scanOverrides(rows pgx.Rows) ([]models.Override, error) {
	defer rows.Close()

	overrides := []models.Override{}
	for rows.Next() {
		var o models.Override
		if err := rows.Scan(
			&o.ID,
			&o.FeedbackID,
			&o.Field,
			&o.OldValue,
			&o.NewValue,
			&o.Reason,
			&o.OverriddenBy,
			&o.OverriddenAt,
		); err != nil {
			return nil, err
		}
		o.OverriddenAt = o.OverriddenAt.UTC()
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func listOverrides(ctx context.Context, q querier, feedbackID uuid.UUID) ([]models.Override, error) {
	rows, err := q.Query(ctx,
		`SELECT `+overrideColumns+` FROM feedback_overrides WHERE feedback_id = $1 ORDER BY id`, feedbackID)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}
	return scanOverrides(rows)
}

// ListOverrides returns a record's ledger in insertion order.
func (d *DB) ListOverrides(ctx context.Context, feedbackID uuid.UUID) ([]models.Override, error) {
	var exists bool
	err := d.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM feedback WHERE id = $1)`, feedbackID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrFeedbackNotFound
	}
	return listOverrides(ctx, d.Pool, feedbackID)
}

// AppendOverride locks the record, hands its current state to build, and
// appends the returned override. Concurrent calls on one record serialize on
// the row lock, so build always sees the ledger as committed by the previous call.
// Nothing is written if build or any statement fails.
func (d *DB) AppendOverride(
	ctx context.Context,
	feedbackID uuid.UUID,
	build func(current *models.Feedback) (models.Override, error),
) (*models.Feedback, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	fb, err := scanFeedback(tx.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedback f WHERE f.id = $1 FOR UPDATE`, feedbackID))
	if err != nil {
		return nil, err
	}

	fb.Overrides, err = listOverrides(ctx, tx, feedbackID)
	if err != nil {
		return nil, err
	}

	o, err := build(fb)
	if err != nil {
		return nil, err
	}
	if !models.IsAnalysisField(o.Field) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, o.Field)
	}
	o.FeedbackID = feedbackID

	err = tx.QueryRow(ctx, `
		INSERT INTO feedback_overrides (feedback_id, field, old_value, new_value, reason, overridden_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, overridden_at
	`, o.FeedbackID, o.Field, o.OldValue, o.NewValue, o.Reason, o.OverriddenBy).Scan(&o.ID, &o.OverriddenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert override: %w", err)
	}
	o.OverriddenAt = o.OverriddenAt.UTC()

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	fb.Overrides = append(fb.Overrides, o)
	return fb, nil
}
