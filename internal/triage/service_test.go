package triage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feedbacktriage/internal/analyzer"
	"feedbacktriage/internal/classifier/classifiertest"
	"feedbacktriage/internal/config"
	"feedbacktriage/internal/db"
	"feedbacktriage/internal/fanout"
	"feedbacktriage/internal/ledger"
	"feedbacktriage/internal/memstore"
	"feedbacktriage/internal/metrics"
	"feedbacktriage/internal/models"
)

const highReply = `{"sentiment":"negative","urgency_level":"high","category":"outage","summary":"Service unavailable for two days.","recommended_action":"Escalate to on-call."}`

type capturingSub struct {
	mu     sync.Mutex
	events []fanout.Event
}

func (c *capturingSub) ID() string { return "capture" }
func (c *capturingSub) Close() error { return nil }
func (c *capturingSub) Send(_ context.Context, ev fanout.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

type alertRecorder struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (a *alertRecorder) HighUrgency(fb *models.Feedback) bool {
	if an := fb.Analysis(); an == nil || an.UrgencyLevel != models.UrgencyHigh {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids = append(a.ids, fb.ID)
	return true
}

type fixture struct {
	svc    *Service
	store  *memstore.Store
	sub    *capturingSub
	alerts *alertRecorder
}

func newFixture(t *testing.T, replies ...classifiertest.Reply) fixture {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()
	hub := fanout.NewHub(logger)
	sub := &capturingSub{}
	hub.Register(sub)
	alerts := &alertRecorder{}

	an := analyzer.New(classifiertest.New(replies...), config.StaticPrompt(config.DefaultPromptConfig()), logger)
	svc := New(store, an, ledger.New(store, logger, nil), metrics.NewEngine(store, logger), logger,
		WithBroadcaster(hub), WithAlerter(alerts))
	return fixture{svc: svc, store: store, sub: sub, alerts: alerts}
}

func request() models.CreateFeedbackRequest {
	return models.CreateFeedbackRequest{
		CustomerName: "Jane Doe",
		Email:        "jane@example.com",
		Message:      "We have had no access for two days and will cancel.",
	}
}

func TestCreateWithAnalysis(t *testing.T) {
	f := newFixture(t, classifiertest.Reply{Text: highReply})

	fb, err := f.svc.Create(context.Background(), request(), "req-1")
	require.NoError(t, err)

	require.NotNil(t, fb.AgentSuccess)
	assert.True(t, *fb.AgentSuccess)
	assert.Nil(t, fb.AnalysisError)
	require.NotNil(t, fb.Analysis())
	assert.Equal(t, "outage", fb.Analysis().Category)

	stored, err := f.store.GetFeedback(context.Background(), fb.ID)
	require.NoError(t, err)
	assert.Equal(t, fb.ID, stored.ID)

	require.Len(t, f.sub.events, 1)
	assert.Equal(t, fanout.EventNewFeedback, f.sub.events[0].Type)
	assert.Equal(t, []uuid.UUID{fb.ID}, f.alerts.ids)
}

func TestCreatePersistsWhenAnalysisFails(t *testing.T) {
	f := newFixture(t,
		classifiertest.Reply{Text: "garbage"},
		classifiertest.Reply{Text: "garbage"},
		classifiertest.Reply{Text: "garbage"},
	)

	fb, err := f.svc.Create(context.Background(), request(), "req-2")
	require.NoError(t, err)

	require.NotNil(t, fb.AgentSuccess)
	assert.False(t, *fb.AgentSuccess)
	require.NotNil(t, fb.AnalysisError)
	assert.Contains(t, *fb.AnalysisError, "AI validation failed after 3 attempts")
	assert.Nil(t, fb.Analysis())

	_, err = f.store.GetFeedback(context.Background(), fb.ID)
	require.NoError(t, err)
	assert.Len(t, f.sub.events, 1, "failed analyses are still broadcast")
	assert.Empty(t, f.alerts.ids)
}

func TestCreatePersistsOnTransportError(t *testing.T) {
	f := newFixture(t, classifiertest.Reply{Err: errors.New("connection refused")})

	fb, err := f.svc.Create(context.Background(), request(), "req-3")
	require.NoError(t, err)
	assert.False(t, *fb.AgentSuccess)
	assert.Contains(t, *fb.AnalysisError, "connection refused")
}

func TestCreatePersistsWhenCallerCancels(t *testing.T) {
	f := newFixture(t, classifiertest.Reply{Text: highReply})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fb, err := f.svc.Create(ctx, request(), "req-4")
	require.NoError(t, err)
	assert.False(t, *fb.AgentSuccess)

	_, err = f.store.GetFeedback(context.Background(), fb.ID)
	assert.NoError(t, err)
}

type failingStore struct{ *memstore.Store }

func (failingStore) InsertFeedback(context.Context, *models.Feedback) error {
	return errors.New("disk full")
}

func TestCreateSurfacesStoreFailure(t *testing.T) {
	logger := zap.NewNop()
	store := failingStore{memstore.New()}
	an := analyzer.New(classifiertest.New(classifiertest.Reply{Text: highReply}), config.StaticPrompt(config.DefaultPromptConfig()), logger)
	alerts := &alertRecorder{}
	svc := New(store, an, ledger.New(store, logger, nil), metrics.NewEngine(store, logger), logger, WithAlerter(alerts))

	_, err := svc.Create(context.Background(), request(), "req-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, alerts.ids)
}

func TestOverrideFlow(t *testing.T) {
	f := newFixture(t, classifiertest.Reply{Text: highReply})
	ctx := context.Background()
	fb, err := f.svc.Create(ctx, request(), "req-6")
	require.NoError(t, err)

	updated, err := f.svc.ApplyOverride(ctx, fb.ID, models.OverrideRequest{
		Field:        models.FieldUrgencyLevel,
		NewValue:     models.UrgencyMedium,
		Reason:       "Partial outage only",
		OverriddenBy: "agent-7",
	})
	require.NoError(t, err)
	assert.Equal(t, models.UrgencyMedium, updated.Analysis().UrgencyLevel)
	assert.Equal(t, models.UrgencyHigh, updated.OriginalAnalysis.UrgencyLevel)

	overrides, err := f.svc.Overrides(ctx, fb.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, models.UrgencyHigh, *overrides[0].OldValue)

	acc, err := f.svc.Accuracy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc.OverallAccuracy)

	urg, err := f.svc.UrgencyBreakdown(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), urg.Medium)

	_, err = f.svc.ApplyOverride(ctx, uuid.New(), models.OverrideRequest{
		Field: models.FieldSummary, NewValue: "x", Reason: "y", OverriddenBy: "z",
	})
	assert.ErrorIs(t, err, db.ErrFeedbackNotFound)
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t, classifiertest.Reply{Text: highReply}, classifiertest.Reply{Err: errors.New("timeout")})
	ctx := context.Background()
	first, err := f.svc.Create(ctx, request(), "a")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, request(), "b")
	require.NoError(t, err)

	items, total, err := f.svc.List(ctx, models.FeedbackFilter{UnresolvedOnly: true, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)

	got, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Message, got.Message)

	_, err = f.svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, db.ErrFeedbackNotFound)

	assert.NoError(t, f.svc.Ping(ctx))
	assert.Equal(t, "scripted", f.svc.Model())
}
