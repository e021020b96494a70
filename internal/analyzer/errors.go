package analyzer

import (
	"errors"
	"fmt"
)

// ErrInvalidOutput marks classifier output that failed decoding or field validation.
var ErrInvalidOutput = errors.New("invalid analysis output")

// ValidationFailure is returned when no attempt produced a valid analysis.
type ValidationFailure struct {
	Attempts int
	Err      error // last decode or validation error
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("AI validation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ValidationFailure) Unwrap() error { return e.Err }

// TransientFailure is returned when the classifier call itself failed.
// It is never retried.
type TransientFailure struct {
	Attempt int
	Err     error
}

func (e *TransientFailure) Error() string {
	return fmt.Sprintf("classifier call failed on attempt %d: %v", e.Attempt, e.Err)
}

func (e *TransientFailure) Unwrap() error { return e.Err }
