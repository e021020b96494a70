package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("REPORT_INTERVAL", "")
	t.Setenv("SMTP_PORT", "")

	cfg := Load()

	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if !cfg.IsDev() {
		t.Error("IsDev() = false, want true")
	}
	if cfg.ReportInterval != 7*24*time.Hour {
		t.Errorf("ReportInterval = %v, want 168h", cfg.ReportInterval)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("REPORT_INTERVAL", "1h")
	t.Setenv("CLASSIFIER_TIMEOUT", "not-a-duration")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_TLS", "TLS")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_MODEL", "gemini-test")

	cfg := Load()

	if cfg.IsDev() {
		t.Error("IsDev() = true, want false")
	}
	if cfg.ReportInterval != time.Hour {
		t.Errorf("ReportInterval = %v, want 1h", cfg.ReportInterval)
	}
	if cfg.ClassifierTimeout != 30*time.Second {
		t.Errorf("ClassifierTimeout = %v, want fallback 30s", cfg.ClassifierTimeout)
	}
	if cfg.SMTPPort != 2525 {
		t.Errorf("SMTPPort = %d, want 2525", cfg.SMTPPort)
	}
	if cfg.SMTPTLS != "tls" {
		t.Errorf("SMTPTLS = %q, want %q", cfg.SMTPTLS, "tls")
	}
	if got := cfg.Model(); got != "gemini-test" {
		t.Errorf("Model() = %q, want %q", got, "gemini-test")
	}
}

func TestFeatureToggles(t *testing.T) {
	cfg := &Config{}
	if cfg.IsSMTPEnabled() || cfg.IsReviewerAuthEnabled() {
		t.Fatal("empty config should not enable SMTP or reviewer auth")
	}

	cfg.SMTPHost = "smtp.example.com"
	cfg.SMTPFrom = "triage@example.com"
	cfg.OIDCIssuer = "https://issuer.example.com"
	cfg.OIDCClientID = "triage"
	if !cfg.IsSMTPEnabled() {
		t.Error("IsSMTPEnabled() = false, want true")
	}
	if !cfg.IsReviewerAuthEnabled() {
		t.Error("IsReviewerAuthEnabled() = false, want true")
	}
}
