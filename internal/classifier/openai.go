package classifier

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClassifier calls the OpenAI chat completions API in JSON mode.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a classifier for the public OpenAI API.
func NewOpenAI(apiKey, model string) *OpenAIClassifier {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIWithConfig creates a classifier for any OpenAI-compatible endpoint.
func NewOpenAIWithConfig(cfg openai.ClientConfig, model string) *OpenAIClassifier {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name returns the provider name.
func (c *OpenAIClassifier) Name() string {
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

// Classify implements Classifier.
func (c *OpenAIClassifier) Classify(ctx context.Context, instruction, message string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: 0,
		MaxTokens:   512,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", ErrMalformedOutput)
	}
	choice := resp.Choices[0]
	switch choice.FinishReason {
	case openai.FinishReasonLength:
		return "", fmt.Errorf("%w: openai response truncated", ErrMalformedOutput)
	case openai.FinishReasonContentFilter:
		return "", fmt.Errorf("%w: openai response filtered", ErrMalformedOutput)
	}

	return choice.Message.Content, nil
}
