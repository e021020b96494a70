package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env      string // "development", "production", etc.
	LogLevel string // zap level name; empty keeps the environment default

	// Server
	ServerAddr   string
	RealtimeAddr string // listener for the websocket feed

	// Storage
	StoreBackend string // "postgres" or "memory"
	DatabaseURL  string
	RedisURL     string // rate limiter storage; in-memory limiter when empty

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// Classifier
	LLMProvider       string // "openai", "gemini", "bedrock"
	OpenAIAPIKey      string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	BedrockRegion     string
	BedrockModel      string
	ClassifierTimeout time.Duration // per attempt; zero disables

	// Prompt config file (YAML, hot reloaded)
	PromptConfigFile string

	// Notifications
	SlackWebhookURL string
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFrom        string
	SMTPTLS         string // "none", "starttls", "tls"
	ReportEmailTo   string

	// Reports
	ReportInterval time.Duration // zero disables the periodic run
	ReportsDir     string

	// Reviewer auth (bearer ID tokens)
	OIDCIssuer   string
	OIDCClientID string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:          getEnv("ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", ""),
		ServerAddr:   getEnv("SERVER_ADDR", ":3000"),
		RealtimeAddr: getEnv("REALTIME_ADDR", ":3001"),
		StoreBackend: getEnv("STORE_BACKEND", "postgres"),
		DatabaseURL:  getEnv("DATABASE_URL", "postgres://localhost:5432/feedback?sslmode=disable"),
		RedisURL:     getEnv("REDIS_URL", ""),
		CORSOrigins:  getEnv("CORS_ORIGINS", ""),

		LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		BedrockRegion:     getEnv("BEDROCK_REGION", "us-east-1"),
		BedrockModel:      getEnv("BEDROCK_MODEL", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
		ClassifierTimeout: getEnvDuration("CLASSIFIER_TIMEOUT", 30*time.Second),

		PromptConfigFile: getEnv("PROMPT_CONFIG_FILE", "config/prompt_config.yaml"),

		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnvInt("SMTP_PORT", 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:        getEnv("SMTP_FROM", ""),
		SMTPTLS:         strings.ToLower(getEnv("SMTP_TLS", "starttls")),
		ReportEmailTo:   getEnv("REPORT_EMAIL_TO", ""),

		ReportInterval: getEnvDuration("REPORT_INTERVAL", 7*24*time.Hour),
		ReportsDir:     getEnv("REPORTS_DIR", "reports"),

		OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
		OIDCClientID: getEnv("OIDC_CLIENT_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsSMTPEnabled returns true if an SMTP relay is configured.
func (c *Config) IsSMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// IsReviewerAuthEnabled returns true if override requests must carry a verified ID token.
func (c *Config) IsReviewerAuthEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// Model returns the model name of the configured classifier provider.
func (c *Config) Model() string {
	switch c.LLMProvider {
	case "gemini", "google":
		return c.GeminiModel
	case "bedrock", "aws":
		return c.BedrockModel
	default:
		return c.OpenAIModel
	}
}
