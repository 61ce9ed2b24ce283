package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultChatModel answers questions when no model is configured.
	DefaultChatModel = "gpt-4o-mini"
	// DefaultTemperature keeps grounded answers close to the context.
	DefaultTemperature = 0.3
	// DefaultMaxTokens caps answer length.
	DefaultMaxTokens = 500

	generateMaxRetries = 2
	generateBaseDelay  = 2 * time.Second
)

// Generator produces an answer for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIGenerator calls the OpenAI chat completions API, retrying rate
// limits and transient failures with exponential backoff.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAIGenerator returns a Generator for the given model. Empty model,
// non-positive temperature or maxTokens fall back to the defaults.
func NewOpenAIGenerator(apiKey, model string, temperature float64, maxTokens int) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not set")
	}
	if model == "" {
		model = DefaultChatModel
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Generate returns the model's answer text for prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(int64(g.maxTokens)),
	}

	var answer string
	operation := func() error {
		completion, err := g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return err
		}
		if len(completion.Choices) == 0 {
			return backoff.Permanent(errors.New("no completion choices returned"))
		}
		answer = completion.Choices[0].Message.Content
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = generateBaseDelay
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, generateMaxRetries), ctx)); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return answer, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
