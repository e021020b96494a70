// Package validation checks request bodies and classifier output against their field constraints.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"feedbacktriage/internal/models"
)

// validate is shared; validator.Validate caches struct metadata and is safe for concurrent use.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match what the client sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	return validate.Struct(v)
}

// Messages flattens a validation error into one readable line per field.
func Messages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return msgs
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// Summary joins Messages into a single string.
func Summary(err error) string {
	return strings.Join(Messages(err), "; ")
}

// NormalizeCreate trims surrounding whitespace so blank input fails `required`.
func NormalizeCreate(req *models.CreateFeedbackRequest) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
}

// NormalizeOverride trims the request and lowercases enum-valued fields.
func NormalizeOverride(req *models.OverrideRequest) {
	req.Field = strings.TrimSpace(req.Field)
	req.NewValue = strings.TrimSpace(req.NewValue)
	req.Reason = strings.TrimSpace(req.Reason)
	req.OverriddenBy = strings.TrimSpace(req.OverriddenBy)
	if req.Field == models.FieldSentiment || req.Field == models.FieldUrgencyLevel {
		req.NewValue = strings.ToLower(req.NewValue)
	}
}

// OverrideValue checks new value constraints that depend on the target field.
// Sentiment and urgency stay within their enums; category keeps its length bound.
func OverrideValue(field, value string) error {
	switch field {
	case models.FieldSentiment:
		return oneOf(field, value, models.Sentiments)
	case models.FieldUrgencyLevel:
		return oneOf(field, value, models.UrgencyLevels)
	case models.FieldCategory:
		if n := len([]rune(value)); n > 100 {
			return fmt.Errorf("category must be at most 100 characters")
		}
	}
	return nil
}

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("new_value for %s must be one of: %s", field, strings.Join(allowed, ", "))
}
