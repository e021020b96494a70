package models

import (
	"time"

	"github.com/google/uuid"
)

// Override is one append-only reviewer correction to an analysis field.
type Override struct {
	ID           int64     `json:"-"`
	FeedbackID   uuid.UUID `json:"-"`
	Field        string    `json:"field"`
	OldValue     *string   `json:"old_value"`
	NewValue     string    `json:"new_value"`
	Reason       string    `json:"reason"`
	OverriddenBy string    `json:"overridden_by"`
	OverriddenAt time.Time `json:"overridden_at"`
}
