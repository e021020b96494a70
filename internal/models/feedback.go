package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Sentiment values.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Urgency levels.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Analysis field names, as used by overrides.
const (
	FieldSentiment         = "sentiment"
	FieldUrgencyLevel      = "urgency_level"
	FieldCategory          = "category"
	FieldSummary           = "summary"
	FieldRecommendedAction = "recommended_action"
)

// AnalysisFields lists the overridable fields in schema order.
var AnalysisFields = []string{
	FieldSentiment,
	FieldUrgencyLevel,
	FieldCategory,
	FieldSummary,
	FieldRecommendedAction,
}

// Sentiments and UrgencyLevels list the closed value sets.
var (
	Sentiments    = []string{SentimentPositive, SentimentNeutral, SentimentNegative}
	UrgencyLevels = []string{UrgencyLow, UrgencyMedium, UrgencyHigh}
)

// Analysis is the structured classification of one message.
type Analysis struct {
	Sentiment         string `json:"sentiment" validate:"required,oneof=positive neutral negative"`
	UrgencyLevel      string `json:"urgency_level" validate:"required,oneof=low medium high"`
	Category          string `json:"category" validate:"required,max=100"`
	Summary           string `json:"summary" validate:"required,max=500"`
	RecommendedAction string `json:"recommended_action" validate:"required,max=500"`
}

// Get returns the value of the named field.
func (a Analysis) Get(field string) (string, bool) {
	switch field {
	case FieldSentiment:
		return a.Sentiment, true
	case FieldUrgencyLevel:
		return a.UrgencyLevel, true
	case FieldCategory:
		return a.Category, true
	case FieldSummary:
		return a.Summary, true
	case FieldRecommendedAction:
		return a.RecommendedAction, true
	}
	return "", false
}

// Set assigns the named field. Returns false for unknown fields.
func (a *Analysis) Set(field, value string) bool {
	switch field {
	case FieldSentiment:
		a.Sentiment = value
	case FieldUrgencyLevel:
		a.UrgencyLevel = value
	case FieldCategory:
		a.Category = value
	case FieldSummary:
		a.Summary = value
	case FieldRecommendedAction:
		a.RecommendedAction = value
	default:
		return false
	}
	return true
}

// IsAnalysisField reports whether name is one of the overridable fields.
func IsAnalysisField(name string) bool {
	for _, f := range AnalysisFields {
		if f == name {
			return true
		}
	}
	return false
}

// Feedback is one customer message with its classification state and correction history.
// OriginalAnalysis is the classifier output as stored; the effective analysis
// is derived from it and Overrides on every read.
type Feedback struct {
	ID               uuid.UUID
	CustomerName     string
	Email            string
	Message          string
	CreatedAt        time.Time
	OriginalAnalysis *Analysis
	AnalysisError    *string
	AgentSuccess     *bool
	Overrides        []Override
}

// Analysis returns the effective analysis: for each field the new value of the
// latest override targeting it, else the original value. Nil when the record
// was never successfully analyzed.
func (f *Feedback) Analysis() *Analysis {
	if f.OriginalAnalysis == nil {
		return nil
	}
	effective := *f.OriginalAnalysis
	for _, o := range f.Overrides {
		effective.Set(o.Field, o.NewValue)
	}
	return &effective
}

// EffectiveValue returns the currently effective value of field, or nil when
// there is no analysis.
func (f *Feedback) EffectiveValue(field string) *string {
	a := f.Analysis()
	if a == nil {
		return nil
	}
	v, ok := a.Get(field)
	if !ok {
		return nil
	}
	return &v
}

// IsProcessed reports whether classification was attempted.
func (f *Feedback) IsProcessed() bool {
	return f.AgentSuccess != nil
}

// IsOverridden reports whether a reviewer has touched a successful analysis.
func (f *Feedback) IsOverridden() bool {
	return f.AgentSuccess != nil && *f.AgentSuccess && len(f.Overrides) > 0
}

type feedbackJSON struct {
	ID               uuid.UUID  `json:"id"`
	CustomerName     string     `json:"customer_name"`
	Email            string     `json:"email"`
	Message          string     `json:"message"`
	CreatedAt        time.Time  `json:"created_at"`
	Analysis         *Analysis  `json:"analysis"`
	OriginalAnalysis *Analysis  `json:"original_analysis"`
	AnalysisError    *string    `json:"analysis_error"`
	AgentSuccess     *bool      `json:"agent_success"`
	Overrides        []Override `json:"overrides"`
}

// MarshalJSON renders the effective analysis alongside the original.
func (f Feedback) MarshalJSON() ([]byte, error) {
	overrides := f.Overrides
	if overrides == nil {
		overrides = []Override{}
	}
	return json.Marshal(feedbackJSON{
		ID:               f.ID,
		CustomerName:     f.CustomerName,
		Email:            f.Email,
		Message:          f.Message,
		CreatedAt:        f.CreatedAt,
		Analysis:         f.Analysis(),
		OriginalAnalysis: f.OriginalAnalysis,
		AnalysisError:    f.AnalysisError,
		AgentSuccess:     f.AgentSuccess,
		Overrides:        overrides,
	})
}

// FeedbackFilter selects records for listing.
type FeedbackFilter struct {
	Urgency        string // effective urgency, exact
	Category       string // effective category, case-insensitive substring
	Sentiment      string // effective sentiment, exact
	UnresolvedOnly bool   // only records with an analysis
	Skip           int
	Limit          int
}
