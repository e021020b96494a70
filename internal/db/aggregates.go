package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedbacktriage/internal/models"
)

// CountFeedback counts records matching f, evaluated against effective values.
func (d *DB) CountFeedback(ctx context.Context, f models.CountFilter) (int64, error) {
	var (
		conds []string
		args  []any
	)
	if f.Processed {
		conds = append(conds, "agent_success IS NOT NULL")
	}
	if f.Overridden {
		conds = append(conds, "agent_success = TRUE AND override_count > 0")
	}
	if f.Category != nil {
		args = append(args, *f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT COUNT(*) FROM feedback_effective`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var n int64
	if err := d.Pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return n, nil
}

// DistinctCategories returns the effective categories of processed records.
func (d *DB) DistinctCategories(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT DISTINCT category FROM feedback_effective
		WHERE agent_success IS NOT NULL AND category IS NOT NULL AND category <> ''
		ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CountByUrgency groups records by effective urgency level.
func (d *DB) CountByUrgency(ctx context.Context) (map[string]int64, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT urgency_level, COUNT(*) FROM feedback_effective
		WHERE urgency_level IS NOT NULL
		GROUP BY urgency_level
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count urgency: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			level string
			n     int64
		)
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, rows.Err()
}

// CountSentimentByDay groups records created within [from, to] by UTC
// calendar day and effective sentiment, ascending by day.
func (d *DB) CountSentimentByDay(ctx context.Context, from, to time.Time) ([]models.SentimentDayCount, error) {
	rows, err := d.Pool.Query(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, sentiment, COUNT(*)
		FROM feedback_effective
		WHERE created_at >= $1 AND created_at <= $2 AND sentiment IS NOT NULL
		GROUP BY day, sentiment
		ORDER BY day
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to group sentiment: %w", err)
	}
	defer rows.Close()

	var out []models.SentimentDayCount
	for rows.Next() {
		var c models.SentimentDayCount
		if err := rows.Scan(&c.Date, &c.Sentiment, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
