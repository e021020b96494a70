package email

import (
	"fmt"
	"html"
	"strings"

	"feedbacktriage/internal/models"
)

// Templates provides email template generation.
type Templates struct {
	title string
}

// NewTemplates creates a new templates instance.
func NewTemplates(title string) *Templates {
	if title == "" {
		title = "Feedback Triage"
	}
	return &Templates{title: title}
}

// baseHTML wraps content in a consistent HTML email template.
func (t *Templates) baseHTML(heading, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #2563eb; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header.alert { background: #dc2626; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .footer { background: #f3f4f6; padding: 15px; text-align: center; font-size: 12px; color: #6b7280; border-radius: 0 0 8px 8px; border: 1px solid #e5e7eb; border-top: none; }
        .info-box { background: white; border: 1px solid #e5e7eb; border-radius: 6px; padding: 15px; margin: 15px 0; }
        .label { font-weight: 600; color: #374151; }
        pre { background: #e5e7eb; padding: 10px; border-radius: 4px; white-space: pre-wrap; }
        code { background: #e5e7eb; padding: 2px 6px; border-radius: 4px; font-family: monospace; }
    </style>
</head>
<body>
    <div class="header%s">
        <h1>%s</h1>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>This email was sent by %s</p>
    </div>
</body>
</html>`, html.EscapeString(heading), headerClass(heading), html.EscapeString(heading), content, html.EscapeString(t.title))
}

func headerClass(heading string) string {
	if strings.HasPrefix(heading, "High urgency") {
		return " alert"
	}
	return ""
}

// HighUrgency generates the alert for a high-urgency record.
func (t *Templates) HighUrgency(fb *models.Feedback) (subject, htmlBody, textBody string) {
	a := fb.Analysis()
	if a == nil {
		a = &models.Analysis{}
	}
	subject = fmt.Sprintf("[%s] High urgency feedback: %s", t.title, a.Category)

	content := fmt.Sprintf(`
        <div class="info-box">
            <p><span class="label">Customer:</span> %s (%s)</p>
            <p><span class="label">Sentiment:</span> %s</p>
            <p><span class="label">Category:</span> %s</p>
            <p><span class="label">Summary:</span> %s</p>
            <p><span class="label">Recommended action:</span> %s</p>
        </div>

        <p><span class="label">Original message:</span></p>
        <pre>%s</pre>

        <p>Feedback ID: <code>%s</code></p>
    `,
		html.EscapeString(fb.CustomerName),
		html.EscapeString(fb.Email),
		html.EscapeString(a.Sentiment),
		html.EscapeString(a.Category),
		html.EscapeString(a.Summary),
		html.EscapeString(a.RecommendedAction),
		html.EscapeString(fb.Message),
		fb.ID,
	)

	htmlBody = t.baseHTML("High urgency feedback", content)

	textBody = fmt.Sprintf(`High urgency feedback

Customer: %s (%s)
Sentiment: %s
Category: %s
Summary: %s
Recommended action: %s

Original message:
%s

Feedback ID: %s
Created: %s

--
%s`,
		fb.CustomerName,
		fb.Email,
		a.Sentiment,
		a.Category,
		a.Summary,
		a.RecommendedAction,
		fb.Message,
		fb.ID,
		fb.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"),
		t.title,
	)

	return
}

// Report generates the review report summary.
func (t *Templates) Report(report *models.Report, path string) (subject, htmlBody, textBody string) {
	acc := report.Accuracy
	urg := report.UrgencyBreakdown
	subject = fmt.Sprintf("[%s] AI agent performance report %s", t.title, report.GeneratedAt.UTC().Format("2006-01-02"))

	var rowsHTML, rowsText strings.Builder
	for _, c := range acc.TopCategories(5) {
		fmt.Fprintf(&rowsHTML, "<li>%s: %.1f%%</li>", html.EscapeString(c.Category), c.Accuracy*100)
		fmt.Fprintf(&rowsText, "  - %s: %.1f%%\n", c.Category, c.Accuracy*100)
	}
	if rowsText.Len() == 0 {
		rowsHTML.WriteString("<li>No category data</li>")
		rowsText.WriteString("  No category data\n")
	}

	var pathHTML, pathText string
	if path != "" {
		pathHTML = fmt.Sprintf("<p>Full report saved to: <code>%s</code></p>", html.EscapeString(path))
		pathText = "\nFull report saved to: " + path + "\n"
	}

	content := fmt.Sprintf(`
        <div class="info-box">
            <p><span class="label">Overall accuracy:</span> %.1f%%</p>
            <p><span class="label">Processed:</span> %d</p>
            <p><span class="label">Overridden:</span> %d (%.1f%%)</p>
        </div>

        <p><span class="label">Top categories by accuracy:</span></p>
        <ul>%s</ul>

        <div class="info-box">
            <p><span class="label">High urgency:</span> %d (%.1f%%)</p>
            <p><span class="label">Medium urgency:</span> %d (%.1f%%)</p>
            <p><span class="label">Low urgency:</span> %d (%.1f%%)</p>
            <p><span class="label">Total feedback:</span> %d</p>
        </div>
        %s
    `,
		acc.OverallAccuracy*100,
		acc.TotalProcessed,
		acc.TotalOverridden, acc.OverrideRate()*100,
		rowsHTML.String(),
		urg.High, urg.Share(urg.High)*100,
		urg.Medium, urg.Share(urg.Medium)*100,
		urg.Low, urg.Share(urg.Low)*100,
		urg.Total,
		pathHTML,
	)

	htmlBody = t.baseHTML("AI agent performance report", content)

	textBody = fmt.Sprintf(`AI agent performance report

Overall accuracy: %.1f%%
Processed: %d
Overridden: %d (%.1f%%)

Top categories by accuracy:
%s
High urgency: %d (%.1f%%)
Medium urgency: %d (%.1f%%)
Low urgency: %d (%.1f%%)
Total feedback: %d
%s
--
%s`,
		acc.OverallAccuracy*100,
		acc.TotalProcessed,
		acc.TotalOverridden, acc.OverrideRate()*100,
		rowsText.String(),
		urg.High, urg.Share(urg.High)*100,
		urg.Medium, urg.Share(urg.Medium)*100,
		urg.Low, urg.Share(urg.Low)*100,
		urg.Total,
		pathText,
		t.title,
	)

	return
}
