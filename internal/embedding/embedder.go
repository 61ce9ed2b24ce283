// Package embedding turns text into vectors via a remote provider, with
// caching, batching, and retry on top.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider is a raw embedding backend. It handles one API call at a time;
// batching across the provider's limit and retry policy live in the Gateway.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	MaxBatchSize() int
	Close() error
}
