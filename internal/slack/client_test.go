package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedbacktriage/internal/models"
)

func highUrgencyFeedback() *models.Feedback {
	ok := true
	return &models.Feedback{
		ID:           uuid.MustParse("6f1c1e8a-2b0e-4c55-9a43-0b8d2f7e1a10"),
		CustomerName: "Jane Doe",
		Email:        "jane@example.com",
		Message:      strings.Repeat("x", 400),
		CreatedAt:    time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		OriginalAnalysis: &models.Analysis{
			Sentiment:         models.SentimentNegative,
			UrgencyLevel:      models.UrgencyHigh,
			Category:          "outage",
			Summary:           "Service is down.",
			RecommendedAction: "Escalate.",
		},
		AgentSuccess: &ok,
	}
}

func TestIsConfigured(t *testing.T) {
	if NewClient("").IsConfigured() {
		t.Error("IsConfigured() = true for empty webhook URL, want false")
	}
	if !NewClient("https://hooks.slack.com/services/T/B/X").IsConfigured() {
		t.Error("IsConfigured() = false, want true")
	}
}

func TestNotifyHighUrgencyPostsBlocks(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	err := NewClient(srv.URL).NotifyHighUrgency(context.Background(), highUrgencyFeedback())
	require.NoError(t, err)

	require.Len(t, got.Blocks, 6)
	assert.Equal(t, "header", got.Blocks[0].Type)
	assert.Equal(t, "*Sentiment:*\nNEGATIVE", got.Blocks[1].Fields[2].Text)
	assert.Contains(t, got.Blocks[4].Text.Text, strings.Repeat("x", 300)+"...")
	assert.NotContains(t, got.Blocks[4].Text.Text, strings.Repeat("x", 301))
	assert.Equal(t,
		"Feedback ID: 6f1c1e8a-2b0e-4c55-9a43-0b8d2f7e1a10 | Created: 2026-03-01 09:30 UTC",
		got.Blocks[5].Elements[0].Text)
}

func TestPostReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).NotifyReport(context.Background(), &models.Report{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "invalid_payload")
}

func TestReportMessage(t *testing.T) {
	report := &models.Report{
		Accuracy: models.AccuracyMetrics{
			TotalProcessed:  10,
			TotalOverridden: 3,
			OverallAccuracy: 0.7,
			ByCategory:      map[string]float64{"billing": 0.5, "praise": 1.0},
		},
		UrgencyBreakdown: models.UrgencyBreakdown{Low: 2, Medium: 1, High: 1, Total: 4},
	}

	msg := ReportMessage(report, "reports/weekly_report_20260301_090000.json")

	require.Len(t, msg.Blocks, 6)
	assert.Equal(t, "*Overall Accuracy:*\n70.0%", msg.Blocks[1].Fields[0].Text)
	assert.Equal(t, "*Override Rate:*\n30.0%", msg.Blocks[1].Fields[3].Text)
	assert.Equal(t, "*Top Categories by Accuracy:*\n• praise: 100.0%\n• billing: 50.0%", msg.Blocks[2].Text.Text)
	assert.Equal(t, "*High Urgency:*\n1 (25.0%)", msg.Blocks[4].Fields[0].Text)
	assert.Equal(t, "*Low Urgency:*\n2 (50.0%)", msg.Blocks[4].Fields[2].Text)
	assert.Contains(t, msg.Blocks[5].Elements[0].Text, "weekly_report_20260301_090000.json")
}

func TestReportMessageWithoutData(t *testing.T) {
	msg := ReportMessage(&models.Report{Accuracy: models.AccuracyMetrics{OverallAccuracy: 1}}, "")

	require.Len(t, msg.Blocks, 5)
	assert.Equal(t, "*Top Categories by Accuracy:*\nNo category data", msg.Blocks[2].Text.Text)
	assert.Equal(t, "*High Urgency:*\n0 (0.0%)", msg.Blocks[4].Fields[0].Text)
}
