// Package memstore is an in-process record store with the same semantics as
// the Postgres store. It backs STORE_BACKEND=memory and the package tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedbacktriage/internal/db"
	"feedbacktriage/internal/models"
)

// Store keeps records in memory. A single mutex serializes writers, which
// gives AppendOverride the same per-record atomicity as the row lock in Postgres.
type Store struct {
	mu         sync.RWMutex
	records    map[uuid.UUID]*models.Feedback
	nextLedger int64
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at and overridden_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records: make(map[uuid.UUID]*models.Feedback),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// InsertFeedback stores fb, assigning ID and CreatedAt when unset.
func (s *Store) InsertFeedback(ctx context.Context, fb *models.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now()
	}
	fb.CreatedAt = fb.CreatedAt.UTC()
	if _, exists := s.records[fb.ID]; exists {
		return fmt.Errorf("failed to insert feedback: duplicate id %s", fb.ID)
	}

	stored := clone(fb)
	stored.Overrides = nil
	s.records[fb.ID] = stored
	return nil
}

// GetFeedback returns a copy of the record.
func (s *Store) GetFeedback(ctx context.Context, id uuid.UUID) (*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fb, ok := s.records[id]
	if !ok {
		return nil, db.ErrFeedbackNotFound
	}
	return clone(fb), nil
}

// ListFeedback mirrors the Postgres listing: effective-value filters,
// newest first, skip/limit paging and the total match count.
func (s *Store) ListFeedback(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Feedback
	for _, fb := range s.records {
		if matches(fb, filter) {
			matched = append(matched, fb)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := int64(len(matched))
	start := min(max(filter.Skip, 0), len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}

	page := make([]models.Feedback, 0, end-start)
	for _, fb := range matched[start:end] {
		page = append(page, *clone(fb))
	}
	return page, total, nil
}

func matches(fb *models.Feedback, f models.FeedbackFilter) bool {
	a := fb.Analysis()
	if f.UnresolvedOnly && a == nil {
		return false
	}
	if f.Urgency != "" && (a == nil || a.UrgencyLevel != f.Urgency) {
		return false
	}
	if f.Sentiment != "" && (a == nil || a.Sentiment != f.Sentiment) {
		return false
	}
	if f.Category != "" && (a == nil || !strings.Contains(strings.ToLower(a.Category), strings.ToLower(f.Category))) {
		return false
	}
	return true
}

// ListOverrides returns the ledger in insertion order.
func (s *Store) ListOverrides(ctx context.Context, id uuid.UUID) ([]models.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fb, ok := s.records[id]
	if !ok {
		return nil, db.ErrFeedbackNotFound
	}
	return append([]models.Override{}, fb.Overrides...), nil
}

// AppendOverride hands build the current record and appends its result.
// The store is locked for the whole call, so nothing is written if build fails.
func (s *Store) AppendOverride(
	ctx context.Context,
	id uuid.UUID,
	build func(current *models.Feedback) (models.Override, error),
) (*models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fb, ok := s.records[id]
	if !ok {
		return nil, db.ErrFeedbackNotFound
	}

	o, err := build(clone(fb))
	if err != nil {
		return nil, err
	}
	if !models.IsAnalysisField(o.Field) {
		return nil, fmt.Errorf("%w: %s", db.ErrUnknownField, o.Field)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.nextLedger++
	o.ID = s.nextLedger
	o.FeedbackID = id
	o.OverriddenAt = s.now().UTC()
	fb.Overrides = append(fb.Overrides, o)

	return clone(fb), nil
}

// CountFeedback counts records matching f against effective values.
func (s *Store) CountFeedback(ctx context.Context, f models.CountFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, fb := range s.records {
		if f.Processed && !fb.IsProcessed() {
			continue
		}
		if f.Overridden && !fb.IsOverridden() {
			continue
		}
		if f.Category != nil {
			c := fb.EffectiveValue(models.FieldCategory)
			if c == nil || *c != *f.Category {
				continue
			}
		}
		n++
	}
	return n, nil
}

// DistinctCategories returns the sorted effective categories of processed records.
func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, fb := range s.records {
		if !fb.IsProcessed() {
			continue
		}
		if c := fb.EffectiveValue(models.FieldCategory); c != nil && *c != "" {
			seen[*c] = struct{}{}
		}
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

// CountByUrgency groups records by effective urgency.
func (s *Store) CountByUrgency(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, fb := range s.records {
		if u := fb.EffectiveValue(models.FieldUrgencyLevel); u != nil {
			counts[*u]++
		}
	}
	return counts, nil
}

// CountSentimentByDay groups records created within [from, to] by UTC day and
// effective sentiment, ascending by day.
func (s *Store) CountSentimentByDay(ctx context.Context, from, to time.Time) ([]models.SentimentDayCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct{ date, sentiment string }
	counts := make(map[key]int64)
	for _, fb := range s.records {
		if fb.CreatedAt.Before(from) || fb.CreatedAt.After(to) {
			continue
		}
		sentiment := fb.EffectiveValue(models.FieldSentiment)
		if sentiment == nil {
			continue
		}
		counts[key{fb.CreatedAt.UTC().Format(time.DateOnly), *sentiment}]++
	}

	out := make([]models.SentimentDayCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.SentimentDayCount{Date: k.date, Sentiment: k.sentiment, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Sentiment < out[j].Sentiment
	})
	return out, nil
}

func clone(fb *models.Feedback) *models.Feedback {
	c := *fb
	if fb.OriginalAnalysis != nil {
		a := *fb.OriginalAnalysis
		c.OriginalAnalysis = &a
	}
	if fb.AnalysisError != nil {
		e := *fb.AnalysisError
		c.AnalysisError = &e
	}
	if fb.AgentSuccess != nil {
		b := *fb.AgentSuccess
		c.AgentSuccess = &b
	}
	c.Overrides = append([]models.Override{}, fb.Overrides...)
	return &c
}
