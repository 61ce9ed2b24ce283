package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

const (
	// embeddingEncoding is the tokenizer used by the text-embedding-3 family.
	embeddingEncoding = "cl100k_base"

	// charsPerToken approximates token length when the tokenizer is
	// unavailable, erring on the short side.
	charsPerToken = 3
)

// Gateway adapts a Provider into an Embedder: it truncates over-long inputs
// to the provider's token budget, splits work into provider-sized batches,
// retries transient failures with exponential backoff, and caches single-text
// embeddings.
type Gateway struct {
	provider       Provider
	cache          *EmbeddingCache
	encoder        *tiktoken.Tiktoken
	maxInputTokens int
	maxAttempts    uint64
	baseDelay      time.Duration
	logger         *zap.Logger
}

// NewGateway wraps provider. cache may be nil to disable caching. The token
// encoder is loaded lazily here; if it cannot be loaded the gateway falls
// back to character-based truncation.
func NewGateway(provider Provider, cache *EmbeddingCache, maxInputTokens int, maxAttempts uint64, baseDelay time.Duration, logger *zap.Logger) *Gateway {
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	encoder, err := tiktoken.GetEncoding(embeddingEncoding)
	if err != nil {
		logger.Warn("tokenizer unavailable, using character-based truncation",
			zap.String("encoding", embeddingEncoding),
			zap.Error(err))
		encoder = nil
	}

	return &Gateway{
		provider:       provider,
		cache:          cache,
		encoder:        encoder,
		maxInputTokens: maxInputTokens,
		maxAttempts:    maxAttempts,
		baseDelay:      baseDelay,
		logger:         logger,
	}
}

// Embed returns the embedding for a single text, consulting the cache first.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.cache != nil {
		if emb, ok := g.cache.Get(text); ok {
			return emb, nil
		}
	}

	embeddings, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		g.cache.Set(text, embeddings[0])
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in input order. Inputs are truncated to the token
// budget, then sent in batches no larger than the provider allows. Each batch
// is retried with exponential backoff before the whole call fails.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = g.truncate(t)
	}

	batchSize := g.provider.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(prepared)
	}

	results := make([][]float32, 0, len(prepared))
	for lo := 0; lo < len(prepared); lo += batchSize {
		hi := lo + batchSize
		if hi > len(prepared) {
			hi = len(prepared)
		}

		batch, err := g.embedWithRetry(ctx, prepared[lo:hi])
		if err != nil {
			return nil, fmt.Errorf("embedding inputs %d-%d: %w", lo, hi-1, err)
		}
		if len(batch) != hi-lo {
			return nil, fmt.Errorf("embedding inputs %d-%d: provider returned %d vectors for %d inputs", lo, hi-1, len(batch), hi-lo)
		}
		results = append(results, batch...)
	}

	return results, nil
}

func (g *Gateway) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.baseDelay

	operation := func() error {
		batch, err := g.provider.EmbedBatch(ctx, texts)
		if err != nil {
			g.logger.Warn("embedding batch failed, will retry",
				zap.Int("batch_size", len(texts)),
				zap.Error(err))
			return err
		}
		result = batch
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, g.maxAttempts-1), ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// truncate caps text at the configured token budget. With no budget set the
// text passes through unchanged.
func (g *Gateway) truncate(text string) string {
	if g.maxInputTokens <= 0 {
		return text
	}

	if g.encoder != nil {
		tokens := g.encoder.Encode(text, nil, nil)
		if len(tokens) <= g.maxInputTokens {
			return text
		}
		return g.encoder.Decode(tokens[:g.maxInputTokens])
	}

	maxChars := g.maxInputTokens * charsPerToken
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

// Dimensions returns the provider's embedding dimension.
func (g *Gateway) Dimensions() int {
	return g.provider.Dimensions()
}

// Close releases the underlying provider.
func (g *Gateway) Close() error {
	return g.provider.Close()
}

var _ Embedder = (*Gateway)(nil)
