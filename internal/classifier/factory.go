package classifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Config selects and configures a provider.
type Config struct {
	Provider string // "openai", "gemini", "bedrock"

	OpenAIAPIKey string
	OpenAIModel  string

	GeminiAPIKey string
	GeminiModel  string

	BedrockRegion string
	BedrockModel  string
}

// New creates the configured classifier.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Classifier, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openAI API key not configured")
		}
		c := NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		logger.Info("using classifier", zap.String("provider", c.Name()))
		return c, nil

	case "gemini", "google":
		c, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		logger.Info("using classifier", zap.String("provider", c.Name()))
		return c, nil

	case "bedrock", "aws":
		c, err := NewBedrock(ctx, cfg.BedrockRegion, cfg.BedrockModel)
		if err != nil {
			return nil, err
		}
		logger.Info("using classifier", zap.String("provider", c.Name()), zap.String("region", c.region))
		return c, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, gemini, bedrock)", cfg.Provider)
	}
}
