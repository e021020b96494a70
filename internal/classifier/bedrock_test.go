package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockClassify(t *testing.T) {
	inv := &fakeInvoker{body: []byte(`{"content":[{"type":"text","text":"{\"sentiment\":"},{"type":"text","text":"\"neutral\"}"}],"stop_reason":"end_turn"}`)}
	c := &BedrockClassifier{client: inv, model: "anthropic.test"}

	got, err := c.Classify(context.Background(), "the instruction", "the message")
	require.NoError(t, err)
	assert.Equal(t, `{"sentiment":"neutral"}`, got)

	var sent bedrockRequest
	require.NoError(t, json.Unmarshal(inv.input.Body, &sent))
	assert.Equal(t, "bedrock-2023-05-31", sent.AnthropicVersion)
	assert.Equal(t, "the instruction", sent.System)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "the message", sent.Messages[0].Content)
	assert.Equal(t, "anthropic.test", *inv.input.ModelId)
}

func TestBedrockClassifyErrors(t *testing.T) {
	tests := []struct {
		name          string
		inv           *fakeInvoker
		wantMalformed bool
	}{
		{"transport", &fakeInvoker{err: errors.New("throttled")}, false},
		{"not json", &fakeInvoker{body: []byte("<html>")}, true},
		{"empty content", &fakeInvoker{body: []byte(`{"content":[]}`)}, true},
		{"truncated", &fakeInvoker{body: []byte(`{"content":[{"type":"text","text":"{"}],"stop_reason":"max_tokens"}`)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &BedrockClassifier{client: tt.inv, model: "m"}
			_, err := c.Classify(context.Background(), "i", "m")
			require.Error(t, err)
			assert.Equal(t, tt.wantMalformed, errors.Is(err, ErrMalformedOutput))
		})
	}
}
