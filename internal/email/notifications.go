package email

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"feedbacktriage/internal/config"
	"feedbacktriage/internal/models"
)

// Notifier sends triage notifications to the configured recipients.
type Notifier struct {
	service    *Service
	templates  *Templates
	recipients []string
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg *config.Config, logger *zap.Logger) *Notifier {
	return &Notifier{
		service:    NewService(cfg, logger),
		templates:  NewTemplates(""),
		recipients: parseRecipients(cfg.ReportEmailTo),
	}
}

func parseRecipients(list string) []string {
	var out []string
	for _, r := range strings.Split(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// IsConfigured reports whether SMTP and at least one recipient are set.
func (n *Notifier) IsConfigured() bool {
	return n.service.IsEnabled() && len(n.recipients) > 0
}

// Name identifies the channel in logs.
func (n *Notifier) Name() string { return "email" }

// NotifyHighUrgency mails the alert for fb.
func (n *Notifier) NotifyHighUrgency(ctx context.Context, fb *models.Feedback) error {
	if !n.IsConfigured() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, htmlBody, textBody := n.templates.HighUrgency(fb)
	return n.service.SendEmail(n.recipients, subject, htmlBody, textBody)
}

// NotifyReport mails the report summary.
func (n *Notifier) NotifyReport(ctx context.Context, report *models.Report, path string) error {
	if !n.IsConfigured() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, htmlBody, textBody := n.templates.Report(report, path)
	return n.service.SendEmail(n.recipients, subject, htmlBody, textBody)
}
