package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"feedbacktriage/internal/models"
	"feedbacktriage/internal/validation"
)

// Decode parses raw classifier output into a validated Analysis.
// Surrounding prose and code fences are tolerated, extra keys are ignored,
// enum values are matched case-insensitively. Every failure wraps ErrInvalidOutput.
func Decode(raw string) (*models.Analysis, error) {
	body := extractObject(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrInvalidOutput)
	}

	var a models.Analysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	a.Sentiment = strings.ToLower(strings.TrimSpace(a.Sentiment))
	a.UrgencyLevel = strings.ToLower(strings.TrimSpace(a.UrgencyLevel))
	a.Category = strings.TrimSpace(a.Category)
	a.Summary = strings.TrimSpace(a.Summary)
	a.RecommendedAction = strings.TrimSpace(a.RecommendedAction)

	if err := validation.Struct(a); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOutput, validation.Summary(err))
	}
	return &a, nil
}

// extractObject returns the outermost {...} span of s, or "".
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
