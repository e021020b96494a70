package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"feedbacktriage/internal/models"
)

// feedbackColumns is the standard column list for feedback queries.
// Analysis columns hold the classifier output as stored, never the effective values.
const feedbackColumns = `f.id, f.customer_name, f.email, f.message, f.created_at,
	f.sentiment, f.urgency_level, f.category, f.summary, f.recommended_action,
	f.analysis_error, f.agent_success`

// scanFeedback scans a row into a Feedback struct.
func scanFeedback(row pgx.Row) (*models.Feedback, error) {
	var fb models.Feedback
	var sentiment, urgency, category, summary, recommendedAction *string
	err := row.Scan(
		&fb.ID,
		&fb.CustomerName,
		&fb.Email,
		&fb.Message,
		&fb.CreatedAt,
		&sentiment,
		&urgency,
		&category,
		&summary,
		&recommendedAction,
		&fb.AnalysisError,
		&fb.AgentSuccess,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFeedbackNotFound
	}
	if err != nil {
		return nil, err
	}

	if sentiment != nil {
		fb.OriginalAnalysis = &models.Analysis{
			Sentiment:         *sentiment,
			UrgencyLevel:      deref(urgency),
			Category:          deref(category),
			Summary:           deref(summary),
			RecommendedAction: deref(recommendedAction),
		}
	}
	fb.CreatedAt = fb.CreatedAt.UTC()
	return &fb, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// InsertFeedback stores a new record. ID and CreatedAt are assigned by the database.
func (d *DB) InsertFeedback(ctx context.Context, fb *models.Feedback) error {
	query := `
		INSERT INTO feedback (customer_name, email, message,
			sentiment, urgency_level, category, summary, recommended_action,
			analysis_error, agent_success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	var sentiment, urgency, category, summary, action *string
	if a := fb.OriginalAnalysis; a != nil {
		sentiment, urgency, category = &a.Sentiment, &a.UrgencyLevel, &a.Category
		summary, action = &a.Summary, &a.RecommendedAction
	}

	err := d.Pool.QueryRow(ctx, query,
		fb.CustomerName,
		fb.Email,
		fb.Message,
		sentiment,
		urgency,
		category,
		summary,
		action,
		fb.AnalysisError,
		fb.AgentSuccess,
	).Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	fb.CreatedAt = fb.CreatedAt.UTC()
	return nil
}

// GetFeedback returns a record with its full override ledger.
func (d *DB) GetFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	fb, err := scanFeedback(d.Pool.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedback f WHERE f.id = $1`, id))
	if err != nil {
		return nil, err
	}

	overrides, err := listOverrides(ctx, d.Pool, id)
	if err != nil {
		return nil, err
	}
	fb.Overrides = overrides
	return fb, nil
}

// ListFeedback returns one page of records matching filter, newest first,
// plus the total number of matches. Filters apply to effective values.
func (d *DB) ListFeedback(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int64, error) {
	where, args := listConditions(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM feedback_effective e` + where
	if err := d.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count feedback: %w", err)
	}

	args = append(args, filter.Limit, filter.Skip)
	query := fmt.Sprintf(`
		SELECT %s
		FROM feedback f
		JOIN feedback_effective e ON e.id = f.id
		%s
		ORDER BY f.created_at DESC, f.id
		LIMIT $%d OFFSET $%d
	`, feedbackColumns, where, len(args)-1, len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list feedback: %w", err)
	}

	items, err := scanFeedbacks(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := attachOverrides(ctx, d.Pool, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// listConditions builds the WHERE clause for a listing over feedback_effective e.
func listConditions(filter models.FeedbackFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Urgency != "" {
		add("e.urgency_level = $%d", filter.Urgency)
	}
	if filter.Category != "" {
		add(`e.category ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(filter.Category))
	}
	if filter.Sentiment != "" {
		add("e.sentiment = $%d", filter.Sentiment)
	}
	if filter.UnresolvedOnly {
		conds = append(conds, "e.sentiment IS NOT NULL")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// scanFeedbacks scans multiple rows into a slice of Feedback.
func scanFeedbacks(rows pgx.Rows) ([]models.Feedback, error) {
	defer rows.Close()

	var items []models.Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *fb)
	}
	return items, rows.Err()
}

// attachOverrides loads the ledgers of all items in one query.
func attachOverrides(ctx context.Context, q querier, items []models.Feedback) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for i := range items {
		ids[i] = items[i].ID.String()
		index[items[i].ID] = i
		items[i].Overrides = []models.Override{}
	}

	rows, err := q.Query(ctx,
		`SELECT `+overrideColumns+` FROM feedback_overrides WHERE feedback_id = ANY($1::uuid[]) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load overrides: %w", err)
	}
	overrides, err := scanOverrides(rows)
	if err != nil {
		return err
	}

	for _, o := range overrides {
		i := index[o.FeedbackID]
		items[i].Overrides = append(items[i].Overrides, o)
	}
	return nil
}
