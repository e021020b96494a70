package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feedbacktriage/internal/analyzer"
	"feedbacktriage/internal/classifier/classifiertest"
	"feedbacktriage/internal/config"
	"feedbacktriage/internal/ledger"
	"feedbacktriage/internal/memstore"
	"feedbacktriage/internal/metrics"
	"feedbacktriage/internal/triage"
)

const billingReply = `{"sentiment":"negative","urgency_level":"medium","category":"billing","summary":"Double charge.","recommended_action":"Refund."}`

type envelope struct {
	Status  string            `json:"status"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Details []string        `json:"details"`
}

type fakeReporter struct {
	path string
	err  error
}

func (f fakeReporter) Run(context.Context) (string, error) { return f.path, f.err }

func newTestApp(t *testing.T, reply string) (*fiber.App, *memstore.Store) {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()
	an := analyzer.New(classifiertest.Always(reply), config.StaticPrompt(config.DefaultPromptConfig()), logger)
	svc := triage.New(store, an, ledger.New(store, logger, nil), metrics.NewEngine(store, logger), logger)

	fb := NewFeedbackHandler(svc, logger)
	mh := NewMetricsHandler(svc, logger)
	rh := NewReportHandler(fakeReporter{path: "reports/weekly_report_20260101_000000.json"}, logger)
	hh := NewHealthHandler(svc, map[string]bool{"ai_analysis": true})

	app := fiber.New()
	app.Get("/health", hh.Health)
	app.Post("/api/feedback", fb.Create)
	app.Get("/api/feedback", fb.List)
	app.Get("/api/feedback/:id", fb.Get)
	app.Post("/api/feedback/:id/override", fb.Override)
	app.Get("/api/feedback/:id/overrides", fb.Overrides)
	app.Get("/api/metrics/accuracy", mh.Accuracy)
	app.Get("/api/metrics/urgency-breakdown", mh.UrgencyBreakdown)
	app.Get("/api/metrics/sentiment-trend", mh.SentimentTrend)
	app.Post("/api/reports", rh.Run)
	return app, store
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), "body = %s", raw)
	}
	return resp.StatusCode, env
}

const createBody = `{"customer_name":"Jane Doe","email":"Jane@Example.com","message":"I was charged twice."}`

func createFeedback(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, env := do(t, app, http.MethodPost, "/api/feedback", createBody)
	require.Equal(t, http.StatusCreated, status)

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created.ID.String()
}

func TestCreateFeedback(t *testing.T) {
	app, _ := newTestApp(t, billingReply)

	status, env := do(t, app, http.MethodPost, "/api/feedback", createBody)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "ok", env.Status)

	var fb struct {
		Email        string `json:"email"`
		AgentSuccess *bool  `json:"agent_success"`
		Analysis     *struct {
			Category string `json:"category"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fb))
	require.NotNil(t, fb.AgentSuccess)
	assert.True(t, *fb.AgentSuccess)
	require.NotNil(t, fb.Analysis)
	assert.Equal(t, "billing", fb.Analysis.Category)
}

func TestCreateFeedbackWhenAnalysisFails(t *testing.T) {
	app, _ := newTestApp(t, "not json")

	status, env := do(t, app, http.MethodPost, "/api/feedback", createBody)
	require.Equal(t, http.StatusCreated, status)

	var fb struct {
		AgentSuccess  *bool   `json:"agent_success"`
		AnalysisError *string `json:"analysis_error"`
		Analysis      any     `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fb))
	require.NotNil(t, fb.AgentSuccess)
	assert.False(t, *fb.AgentSuccess)
	assert.NotNil(t, fb.AnalysisError)
	assert.Nil(t, fb.Analysis)
}

func TestCreateFeedbackRejectsBadInput(t *testing.T) {
	app, _ := newTestApp(t, billingReply)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"malformed json", `{"customer_name":`, http.StatusBadRequest, ""},
		{"missing name", `{"email":"a@b.co","message":"hi"}`, http.StatusUnprocessableEntity, "customer_name"},
		{"bad email", `{"customer_name":"A","email":"nope","message":"hi"}`, http.StatusUnprocessableEntity, "email"},
		{"blank message", `{"customer_name":"A","email":"a@b.co","message":"   "}`, http.StatusUnprocessableEntity, "message"},
		{"message too long", `{"customer_name":"A","email":"a@b.co","message":"` + strings.Repeat("x", 8001) + `"}`, http.StatusUnprocessableEntity, "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, http.MethodPost, "/api/feedback", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, "error", env.Status)
			if tt.field != "" {
				require.NotEmpty(t, env.Details)
				assert.True(t, strings.HasPrefix(env.Details[0], tt.field), "details = %v", env.Details)
			}
		})
	}
}

func TestListFeedback(t *testing.T) {
	app, _ := newTestApp(t, billingReply)
	for i := 0; i < 3; i++ {
		createFeedback(t, app)
	}

	status, env := do(t, app, http.MethodGet, "/api/feedback?limit=2", "")
	require.Equal(t, http.StatusOK, status)

	var page feedbackList
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Feedbacks, 2)
	assert.Equal(t, int64(3), page.Total)

	status, env = do(t, app, http.MethodGet, "/api/feedback?category=BILL&urgency=medium", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(3), page.Total)

	status, env = do(t, app, http.MethodGet, "/api/feedback?urgency=high", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(0), page.Total)
	assert.NotNil(t, page.Feedbacks)
}

func TestListFeedbackRejectsBadPaging(t *testing.T) {
	app, _ := newTestApp(t, billingReply)

	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "skip=-1", "unresolved_only=maybe"} {
		t.Run(q, func(t *testing.T) {
			status, env := do(t, app, http.MethodGet, "/api/feedback?"+q, "")
			assert.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Equal(t, "error", env.Status)
		})
	}
}

func TestGetFeedback(t *testing.T) {
	app, _ := newTestApp(t, billingReply)
	id := createFeedback(t, app)

	status, _ := do(t, app, http.MethodGet, "/api/feedback/"+id, "")
	assert.Equal(t, http.StatusOK, status)

	status, env := do(t, app, http.MethodGet, "/api/feedback/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "feedback not found", env.Error)

	status, _ = do(t, app, http.MethodGet, "/api/feedback/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOverrideFeedback(t *testing.T) {
	app, _ := newTestApp(t, billingReply)
	id := createFeedback(t, app)

	body := `{"field":"category","new_value":"refunds","reason":"Customer asked for a refund.","overridden_by":"reviewer"}`
	status, env := do(t, app, http.MethodPost, "/api/feedback/"+id+"/override", body)
	require.Equal(t, http.StatusOK, status, env.Error)

	var fb struct {
		Analysis struct {
			Category string `json:"category"`
		} `json:"analysis"`
		OriginalAnalysis struct {
			Category string `json:"category"`
		} `json:"original_analysis"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fb))
	assert.Equal(t, "refunds", fb.Analysis.Category)
	assert.Equal(t, "billing", fb.OriginalAnalysis.Category)

	status, env = do(t, app, http.MethodGet, "/api/feedback/"+id+"/overrides", "")
	require.Equal(t, http.StatusOK, status)
	var overrides []struct {
		Field    string `json:"field"`
		OldValue string `json:"old_value"`
		NewValue string `json:"new_value"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &overrides))
	require.Len(t, overrides, 1)
	assert.Equal(t, "billing", overrides[0].OldValue)
	assert.Equal(t, "refunds", overrides[0].NewValue)
}

func TestOverrideFeedbackErrors(t *testing.T) {
	app, _ := newTestApp(t, billingReply)
	id := createFeedback(t, app)

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"unknown record", uuid.NewString(), `{"field":"category","new_value":"x","reason":"r","overridden_by":"me"}`, http.StatusNotFound},
		{"malformed id", "abc", `{"field":"category","new_value":"x","reason":"r","overridden_by":"me"}`, http.StatusNotFound},
		{"unknown field", id, `{"field":"customer_name","new_value":"x","reason":"r","overridden_by":"me"}`, http.StatusUnprocessableEntity},
		{"bad enum value", id, `{"field":"sentiment","new_value":"furious","reason":"r","overridden_by":"me"}`, http.StatusUnprocessableEntity},
		{"missing reason", id, `{"field":"category","new_value":"x","overridden_by":"me"}`, http.StatusUnprocessableEntity},
		{"malformed body", id, `[`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, http.MethodPost, "/api/feedback/"+tt.target+"/override", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, "error", env.Status)
		})
	}
}

func TestOverrideOnFailedAnalysis(t *testing.T) {
	app, _ := newTestApp(t, "garbage")
	id := createFeedback(t, app)

	body := `{"field":"category","new_value":"billing","reason":"r","overridden_by":"me"}`
	status, env := do(t, app, http.MethodPost, "/api/feedback/"+id+"/override", body)
	require.Equal(t, http.StatusOK, status)

	var fb struct {
		Analysis  any `json:"analysis"`
		Overrides []struct {
			OldValue *string `json:"old_value"`
		} `json:"overrides"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fb))
	assert.Nil(t, fb.Analysis)
	require.Len(t, fb.Overrides, 1)
	assert.Nil(t, fb.Overrides[0].OldValue)
}

func TestMetricsEndpoints(t *testing.T) {
	app, _ := newTestApp(t, billingReply)
	id := createFeedback(t, app)
	createFeedback(t, app)

	body := `{"field":"urgency_level","new_value":"high","reason":"Escalated.","overridden_by":"me"}`
	status, _ := do(t, app, http.MethodPost, "/api/feedback/"+id+"/override", body)
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, app, http.MethodGet, "/api/metrics/accuracy", "")
	require.Equal(t, http.StatusOK, status)
	var acc struct {
		TotalProcessed  int64   `json:"total_processed"`
		TotalOverridden int64   `json:"total_overridden"`
		OverallAccuracy float64 `json:"overall_accuracy"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &acc))
	assert.Equal(t, int64(2), acc.TotalProcessed)
	assert.Equal(t, int64(1), acc.TotalOverridden)
	assert.InDelta(t, 0.5, acc.OverallAccuracy, 1e-9)

	status, env = do(t, app, http.MethodGet, "/api/metrics/urgency-breakdown", "")
	require.Equal(t, http.StatusOK, status)
	var ub struct {
		Medium int64 `json:"medium"`
		High   int64 `json:"high"`
		Total  int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ub))
	assert.Equal(t, int64(1), ub.Medium)
	assert.Equal(t, int64(1), ub.High)
	assert.Equal(t, int64(2), ub.Total)

	status, env = do(t, app, http.MethodGet, "/api/metrics/sentiment-trend", "")
	require.Equal(t, http.StatusOK, status)
	var trend []struct {
		Negative int64 `json:"negative"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &trend))
	require.Len(t, trend, 1)
	assert.Equal(t, int64(2), trend[0].Negative)
}

func TestSentimentTrendDays(t *testing.T) {
	app, _ := newTestApp(t, billingReply)

	tests := []struct {
		query  string
		status int
	}{
		{"", http.StatusOK},
		{"?days=1", http.StatusOK},
		{"?days=90", http.StatusOK},
		{"?days=0", http.StatusUnprocessableEntity},
		{"?days=91", http.StatusUnprocessableEntity},
		{"?days=week", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		status, _ := do(t, app, http.MethodGet, "/api/metrics/sentiment-trend"+tt.query, "")
		if status != tt.status {
			t.Errorf("sentiment-trend%s = %d, want %d", tt.query, status, tt.status)
		}
	}
}

func TestRunReport(t *testing.T) {
	app, _ := newTestApp(t, billingReply)

	status, env := do(t, app, http.MethodPost, "/api/reports", "")
	require.Equal(t, http.StatusCreated, status)
	assert.Contains(t, string(env.Data), "weekly_report_20260101_000000.json")

	failing := fiber.New()
	failing.Post("/api/reports", NewReportHandler(fakeReporter{err: errors.New("disk full")}, zap.NewNop()).Run)
	status, env = do(t, failing, http.MethodPost, "/api/reports", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "failed to build report", env.Error)
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, billingReply)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Status   string          `json:"status"`
		Database string          `json:"database"`
		Model    string          `json:"model"`
		Features map[string]bool `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "healthy", got.Status)
	assert.Equal(t, "connected", got.Database)
	assert.Equal(t, "repeating", got.Model)
	assert.True(t, got.Features["ai_analysis"])
}
