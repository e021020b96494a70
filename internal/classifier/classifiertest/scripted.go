// Package classifiertest provides a scripted Classifier for tests.
package classifiertest

import (
	"context"
	"fmt"
	"sync"
)

// Reply is one scripted classifier outcome.
type Reply struct {
	Text string
	Err  error
}

// Call records one invocation.
type Call struct {
	Instruction string
	Message     string
}

// Scripted returns its replies in order, one per call. Calls past the end of
// the script fail.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

// New returns a classifier that plays back replies.
func New(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

// Always returns a classifier that answers every call with text.
func Always(text string) *Repeating {
	return &Repeating{Reply: Reply{Text: text}}
}

// Name implements classifier.Classifier.
func (s *Scripted) Name() string { return "scripted" }

// Classify implements classifier.Classifier.
func (s *Scripted) Classify(ctx context.Context, instruction, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Instruction: instruction, Message: message})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n := len(s.calls)
	if n > len(s.replies) {
		return "", fmt.Errorf("scripted classifier: unexpected call %d", n)
	}
	r := s.replies[n-1]
	return r.Text, r.Err
}

// Calls returns a copy of the recorded invocations.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Repeating answers every call with the same reply.
type Repeating struct {
	Reply Reply

	mu    sync.Mutex
	count int
}

// Name implements classifier.Classifier.
func (r *Repeating) Name() string { return "repeating" }

// Classify implements classifier.Classifier.
func (r *Repeating) Classify(ctx context.Context, instruction, message string) (string, error) {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.Reply.Text, r.Reply.Err
}

// Count returns the number of calls made.
func (r *Repeating) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
