package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"go.uber.org/zap"

	"feedbacktriage/internal/config"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.Config
		wantEnabled bool
	}{
		{
			name: "enabled when host and from configured",
			cfg: &config.Config{
				SMTPHost: "smtp.example.com",
				SMTPPort: 587,
				SMTPFrom: "triage@example.com",
			},
			wantEnabled: true,
		},
		{
			name: "disabled when SMTPHost is empty",
			cfg: &config.Config{
				SMTPPort: 587,
				SMTPFrom: "triage@example.com",
			},
			wantEnabled: false,
		},
		{
			name: "disabled when SMTPFrom is empty",
			cfg: &config.Config{
				SMTPHost: "smtp.example.com",
				SMTPPort: 587,
			},
			wantEnabled: false,
		},
		{
			name:        "disabled with empty config",
			cfg:         &config.Config{},
			wantEnabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.cfg, zap.NewNop())
			if svc.IsEnabled() != tt.wantEnabled {
				t.Errorf("IsEnabled() = %v, want %v", svc.IsEnabled(), tt.wantEnabled)
			}
		})
	}
}

type captured struct {
	addr string
	auth smtp.Auth
	to   []string
	msg  string
}

func capturingService(cfg *config.Config, err error) (*Service, *captured) {
	svc := NewService(cfg, zap.NewNop())
	c := &captured{}
	svc.send = func(addr string, auth smtp.Auth, to []string, msg string) error {
		c.addr, c.auth, c.to, c.msg = addr, auth, to, msg
		return err
	}
	return svc, c
}

func TestService_SendEmail_Disabled(t *testing.T) {
	svc, c := capturingService(&config.Config{}, nil)

	if err := svc.SendEmail([]string{"ops@example.com"}, "Test", "<p>HTML</p>", "Text"); err != nil {
		t.Errorf("SendEmail() when disabled = %v, want nil", err)
	}
	if c.msg != "" {
		t.Error("SendEmail() delivered a message while disabled")
	}
}

func TestService_SendEmail_NoRecipients(t *testing.T) {
	svc, c := capturingService(&config.Config{SMTPHost: "smtp.example.com", SMTPFrom: "a@example.com"}, nil)

	if err := svc.SendEmail(nil, "Test", "<p>HTML</p>", "Text"); err != nil {
		t.Errorf("SendEmail() with no recipients = %v, want nil", err)
	}
	if c.msg != "" {
		t.Error("SendEmail() delivered a message with no recipients")
	}
}

func TestService_SendEmail_BuildsMessage(t *testing.T) {
	cfg := &config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     2525,
		SMTPFrom:     "triage@example.com",
		SMTPUsername: "user",
		SMTPPassword: "secret",
	}
	svc, c := capturingService(cfg, nil)

	err := svc.SendEmail([]string{"a@example.com", "b@example.com"}, "Subject line", "<p>html</p>", "plain")
	if err != nil {
		t.Fatalf("SendEmail() error = %v", err)
	}

	if c.addr != "smtp.example.com:2525" {
		t.Errorf("addr = %q, want %q", c.addr, "smtp.example.com:2525")
	}
	if c.auth == nil {
		t.Error("auth = nil, want PlainAuth when credentials set")
	}
	for _, want := range []string{
		"From: triage@example.com\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: Subject line\r\n",
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\nplain\r\n",
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n<p>html</p>\r\n",
	} {
		if !strings.Contains(c.msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if !strings.HasSuffix(c.msg, "--\r\n") {
		t.Error("message is missing the closing boundary")
	}
}

func TestService_SendEmail_PropagatesError(t *testing.T) {
	cfg := &config.Config{SMTPHost: "smtp.example.com", SMTPFrom: "a@example.com"}
	svc, _ := capturingService(cfg, errors.New("SMTP dial failed"))

	if err := svc.SendEmail([]string{"ops@example.com"}, "s", "", "t"); err == nil {
		t.Error("SendEmail() error = nil, want delivery error")
	}
}

func TestBuildMessage_OmitsEmptyParts(t *testing.T) {
	msg := buildMessage("a@example.com", []string{"b@example.com"}, "s", "", "text only")
	if strings.Contains(msg, "text/html") {
		t.Error("buildMessage() included an empty HTML part")
	}
	if !strings.Contains(msg, "text only") {
		t.Error("buildMessage() dropped the text part")
	}
}
