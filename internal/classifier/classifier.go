// Package classifier adapts generative-model providers to a single
// instruction-plus-message call that returns raw structured text.
package classifier

import (
	"context"
	"errors"
)

// ErrMalformedOutput marks a response that arrived but cannot be used as-is
// (empty, truncated, filtered). Callers may retry it; any other error is a
// transport or provider failure.
var ErrMalformedOutput = errors.New("malformed classifier output")

// Classifier sends one message under a fixed instruction and returns the
// model's raw reply.
type Classifier interface {
	Classify(ctx context.Context, instruction, message string) (string, error)

	// Name returns the provider and model, for logging.
	Name() string
}
