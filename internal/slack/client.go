// Package slack posts triage alerts and report summaries to a Slack
// incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"feedbacktriage/internal/models"
)

const messagePreviewLen = 300

// Client posts to one incoming webhook.
type Client struct {
	webhookURL string
	client     *http.Client
}

// NewClient creates a Client.
func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// IsConfigured reports whether a webhook URL is set.
func (c *Client) IsConfigured() bool {
	return c.webhookURL != ""
}

// Name identifies the channel in logs.
func (c *Client) Name() string { return "slack" }

// NotifyHighUrgency posts an alert for fb.
func (c *Client) NotifyHighUrgency(ctx context.Context, fb *models.Feedback) error {
	return c.post(ctx, HighUrgencyMessage(fb))
}

// NotifyReport posts the report summary.
func (c *Client) NotifyReport(ctx context.Context, report *models.Report, path string) error {
	return c.post(ctx, ReportMessage(report, path))
}

func (c *Client) post(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build Slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send to Slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// HighUrgencyMessage builds the alert for one record.
func HighUrgencyMessage(fb *models.Feedback) Message {
	a := fb.Analysis()
	if a == nil {
		a = &models.Analysis{}
	}

	preview := fb.Message
	if utf8.RuneCountInString(preview) > messagePreviewLen {
		preview = string([]rune(preview)[:messagePreviewLen]) + "..."
	}

	return Message{
		Text: fmt.Sprintf("High urgency feedback from %s", fb.CustomerName),
		Blocks: []Block{
			header("🚨 High Urgency Feedback Alert"),
			fields(
				"*Customer:*\n"+fb.CustomerName,
				"*Email:*\n"+fb.Email,
				"*Sentiment:*\n"+strings.ToUpper(a.Sentiment),
				"*Category:*\n"+a.Category,
			),
			section("*Summary:*\n" + a.Summary),
			section("*Recommended Action:*\n" + a.RecommendedAction),
			section("*Original Message:*\n```" + preview + "```"),
			contextBlock(fmt.Sprintf("Feedback ID: %s | Created: %s",
				fb.ID, fb.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))),
		},
	}
}

// ReportMessage builds the report summary.
func ReportMessage(report *models.Report, path string) Message {
	acc := report.Accuracy
	urg := report.UrgencyBreakdown

	var categories []string
	for _, c := range acc.TopCategories(5) {
		categories = append(categories, fmt.Sprintf("• %s: %s", c.Category, percent(c.Accuracy)))
	}
	categoryText := "No category data"
	if len(categories) > 0 {
		categoryText = strings.Join(categories, "\n")
	}

	blocks := []Block{
		header("📊 Weekly AI Agent Performance Report"),
		fields(
			"*Overall Accuracy:*\n"+percent(acc.OverallAccuracy),
			fmt.Sprintf("*Total Processed:*\n%d", acc.TotalProcessed),
			fmt.Sprintf("*Total Overridden:*\n%d", acc.TotalOverridden),
			"*Override Rate:*\n"+percent(acc.OverrideRate()),
		),
		section("*Top Categories by Accuracy:*\n" + categoryText),
		divider(),
		fields(
			fmt.Sprintf("*High Urgency:*\n%d (%s)", urg.High, percent(urg.Share(urg.High))),
			fmt.Sprintf("*Medium Urgency:*\n%d (%s)", urg.Medium, percent(urg.Share(urg.Medium))),
			fmt.Sprintf("*Low Urgency:*\n%d (%s)", urg.Low, percent(urg.Share(urg.Low))),
			fmt.Sprintf("*Total Feedback:*\n%d", urg.Total),
		),
	}
	if path != "" {
		blocks = append(blocks, contextBlock("Full report saved to: `"+path+"`"))
	}

	return Message{Text: "Weekly AI agent performance report", Blocks: blocks}
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
