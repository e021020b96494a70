package models

import (
	"sort"
	"time"
)

// AccuracyMetrics measures how often reviewers had to touch the classifier output.
type AccuracyMetrics struct {
	TotalProcessed  int64              `json:"total_processed"`
	TotalOverridden int64              `json:"total_overridden"`
	OverallAccuracy float64            `json:"overall_accuracy"`
	ByCategory      map[string]float64 `json:"by_category"`
}

// UrgencyBreakdown counts records by effective urgency.
type UrgencyBreakdown struct {
	Low    int64 `json:"low"`
	Medium int64 `json:"medium"`
	High   int64 `json:"high"`
	Total  int64 `json:"total"`
}

// SentimentTrend holds one UTC day's sentiment counts.
type SentimentTrend struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Positive int64  `json:"positive"`
	Neutral  int64  `json:"neutral"`
	Negative int64  `json:"negative"`
}

// Total returns the day's record count.
func (s SentimentTrend) Total() int64 {
	return s.Positive + s.Neutral + s.Negative
}

// SentimentDayCount is one (day, sentiment) group from the record store.
type SentimentDayCount struct {
	Date      string
	Sentiment string
	Count     int64
}

// CountFilter restricts an aggregate count.
type CountFilter struct {
	Processed  bool    // agent_success is set
	Overridden bool    // agent_success is true and at least one override exists
	Category   *string // effective category equals
}

// Report is the periodic review snapshot written to disk.
type Report struct {
	GeneratedAt      time.Time        `json:"generated_at"`
	Accuracy         AccuracyMetrics  `json:"accuracy"`
	UrgencyBreakdown UrgencyBreakdown `json:"urgency_breakdown"`
	SentimentTrend   []SentimentTrend `json:"sentiment_trend"`
}

// CategoryAccuracy is one entry of a ranked category list.
type CategoryAccuracy struct {
	Category string
	Accuracy float64
}

// TopCategories returns up to n categories by descending accuracy, ties by name.
func (m AccuracyMetrics) TopCategories(n int) []CategoryAccuracy {
	out := make([]CategoryAccuracy, 0, len(m.ByCategory))
	for c, a := range m.ByCategory {
		out = append(out, CategoryAccuracy{Category: c, Accuracy: a})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy > out[j].Accuracy
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// OverrideRate is overridden/processed, zero when nothing was processed.
func (m AccuracyMetrics) OverrideRate() float64 {
	if m.TotalProcessed == 0 {
		return 0
	}
	return float64(m.TotalOverridden) / float64(m.TotalProcessed)
}

// Share returns n as a fraction of the total, zero for an empty breakdown.
func (u UrgencyBreakdown) Share(n int64) float64 {
	if u.Total == 0 {
		return 0
	}
	return float64(n) / float64(u.Total)
}
