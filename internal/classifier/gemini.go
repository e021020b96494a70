package classifier

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClassifier calls the Gemini API with a JSON response type.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini classifier.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClassifier{client: client, model: model}, nil
}

// Name returns the provider name.
func (c *GeminiClassifier) Name() string {
	return fmt.Sprintf("Google Gemini (%s)", c.model)
}

// Classify implements Classifier.
func (c *GeminiClassifier) Classify(ctx context.Context, instruction, message string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0),
		MaxOutputTokens:   512,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(message), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrMalformedOutput)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return "", fmt.Errorf("%w: gemini response truncated", ErrMalformedOutput)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: gemini returned empty text", ErrMalformedOutput)
	}
	return text, nil
}
