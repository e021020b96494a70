// Package fanout delivers events to live subscribers. Delivery is
// best-effort: a subscriber that fails a send is dropped, the rest are
// unaffected.
package fanout

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventNewFeedback is broadcast after a record is created.
const EventNewFeedback = "feedbacks:new"

// Delivery outcomes reported to the Observer.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// Event is the message pushed to subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Subscriber is one live receiver. Implementations should be pointer types;
// values of an uncomparable type are matched by ID alone.
type Subscriber interface {
	ID() string
	Send(ctx context.Context, ev Event) error
	Close() error
}

// Observer receives delivery counts.
type Observer interface {
	ObserveDelivery(outcome string)
	SetSubscribers(n int)
}

// Hub tracks registered subscribers and broadcasts to them.
type Hub struct {
	mu          sync.RWMutex
	subs        map[string]Subscriber
	logger      *zap.Logger
	sendTimeout time.Duration
	observer    Observer
}

// Option configures a Hub.
type Option func(*Hub)

// WithSendTimeout bounds each individual send.
func WithSendTimeout(d time.Duration) Option {
	return func(h *Hub) { h.sendTimeout = d }
}

// WithObserver reports deliveries and subscriber counts.
func WithObserver(o Observer) Option {
	return func(h *Hub) { h.observer = o }
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger, opts ...Option) *Hub {
	h := &Hub{
		subs:        make(map[string]Subscriber),
		logger:      logger,
		sendTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds sub. A subscriber with the same ID replaces the previous one.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	h.subs[sub.ID()] = sub
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Info("subscriber registered", zap.String("subscriber_id", sub.ID()), zap.Int("subscribers", n))
	h.setSubscribers(n)
}

// Deregister removes sub. It reports whether sub was registered.
func (h *Hub) Deregister(sub Subscriber) bool {
	h.mu.Lock()
	current, ok := h.subs[sub.ID()]
	if ok && sameSubscriber(current, sub) {
		delete(h.subs, sub.ID())
	} else {
		ok = false
	}
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.logger.Info("subscriber deregistered", zap.String("subscriber_id", sub.ID()), zap.Int("subscribers", n))
		h.setSubscribers(n)
	}
	return ok
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast sends ev to every subscriber registered at call time,
// concurrently, and waits for all sends to finish. Failed subscribers are
// deregistered and closed. It returns the number of successful deliveries.
func (h *Hub) Broadcast(ctx context.Context, ev Event) int {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)
	for _, sub := range targets {
		wg.Add(1)
		go func(sub Subscriber) {
			defer wg.Done()
			if err := h.send(ctx, sub, ev); err != nil {
				h.logger.Warn("dropping subscriber after failed send",
					zap.String("subscriber_id", sub.ID()),
					zap.String("event", ev.Type),
					zap.Error(err))
				h.observe(OutcomeFailed)
				if h.Deregister(sub) {
					_ = sub.Close()
				}
				return
			}
			h.observe(OutcomeDelivered)
			mu.Lock()
			delivered++
			mu.Unlock()
		}(sub)
	}
	wg.Wait()

	h.logger.Debug("event broadcast",
		zap.String("event", ev.Type),
		zap.Int("targets", len(targets)),
		zap.Int("delivered", delivered))
	return delivered
}

func (h *Hub) send(ctx context.Context, sub Subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()

	if h.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.sendTimeout)
		defer cancel()
	}
	return sub.Send(ctx, ev)
}

// sameSubscriber reports whether a and b are the same registration without
// panicking on uncomparable dynamic types.
func sameSubscriber(a, b Subscriber) (same bool) {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if !ta.Comparable() {
		return true
	}
	// Comparable structs can still hold uncomparable interface fields.
	defer func() {
		if recover() != nil {
			same = true
		}
	}()
	return a == b
}

// CloseAll closes and removes every subscriber.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	h.setSubscribers(0)
}

func (h *Hub) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveDelivery(outcome)
	}
}

func (h *Hub) setSubscribers(n int) {
	if h.observer != nil {
		h.observer.SetSubscribers(n)
	}
}
