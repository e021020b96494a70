package db

import "errors"

// Domain-level database error sentinels.
var (
	ErrFeedbackNotFound = errors.New("feedback not found")
	ErrUnknownField     = errors.New("unknown analysis field")
)
