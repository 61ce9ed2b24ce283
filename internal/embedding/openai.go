package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"
	// DefaultDimensions is the native dimension of DefaultModel.
	DefaultDimensions = 1536

	// openAIMaxBatchSize is the API's per-request input limit.
	openAIMaxBatchSize = 100
)

// ErrAPIKeyMissing indicates the OpenAI provider was requested without a key.
var ErrAPIKeyMissing = errors.New("OpenAI API key not set: set OPENAI_API_KEY or embedding.api_key")

// OpenAIProvider generates embeddings through the OpenAI API.
type OpenAIProvider struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIProvider creates a provider for the given model. Empty model or
// non-positive dimensions fall back to the defaults.
func NewOpenAIProvider(apiKey, model string, dimensions int) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	if model == "" {
		model = DefaultModel
	}
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}

	return &OpenAIProvider{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// EmbedBatch embeds up to MaxBatchSize texts in one API call, returning
// vectors in input order.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > openAIMaxBatchSize {
		return nil, fmt.Errorf("batch size %d exceeds maximum of %d", len(texts), openAIMaxBatchSize)
	}

	params := openai.EmbeddingNewParams{
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: openai.Int(int64(p.dimensions)),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		embeddings[data.Index] = vector
	}
	return embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

// MaxBatchSize returns the API's per-request input limit.
func (p *OpenAIProvider) MaxBatchSize() int {
	return openAIMaxBatchSize
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (p *OpenAIProvider) Close() error {
	return nil
}

var _ Provider = (*OpenAIProvider)(nil)
