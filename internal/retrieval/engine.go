// Package retrieval finds the chunks most relevant to a question.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/embedding"
	"github.com/hyperjump/annai/internal/models"
	"github.com/hyperjump/annai/internal/vectorindex"
)

const (
	// DefaultTopK is how many chunks a query pulls from the index.
	DefaultTopK = 5
	// DefaultMinScore filters out hits with near-zero similarity.
	DefaultMinScore = 0.1
)

// Engine embeds a question and queries the index for its nearest chunks.
type Engine struct {
	embedder embedding.Embedder
	index    vectorindex.Index
	topK     int
	minScore float64
	logger   *zap.Logger
}

// NewEngine returns an Engine. Non-positive topK or minScore use the
// defaults.
func NewEngine(embedder embedding.Embedder, index vectorindex.Index, topK int, minScore float64, logger *zap.Logger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		embedder: embedder,
		index:    index,
		topK:     topK,
		minScore: minScore,
		logger:   logger,
	}
}

// Retrieve returns the top chunks for the question, ranked by similarity,
// with below-threshold hits dropped. SourceURLs holds the distinct URLs of
// the surviving chunks in rank order. An empty index or an all-filtered
// result set yields an empty context, not an error.
func (e *Engine) Retrieve(ctx context.Context, question string) (*models.RetrievedContext, error) {
	queryEmbedding, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	hits, err := e.index.Query(ctx, queryEmbedding, e.topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	rc := &models.RetrievedContext{}
	seenURLs := make(map[string]bool)
	for _, hit := range hits {
		if hit.Score < e.minScore {
			continue
		}
		rc.Chunks = append(rc.Chunks, models.RetrievedChunk{
			Key:        hit.Key,
			Text:       hit.Metadata.ChunkText,
			URL:        hit.Metadata.URL,
			Title:      hit.Metadata.Title,
			ChunkIndex: hit.Metadata.ChunkIndex,
			Score:      hit.Score,
		})
		if url := hit.Metadata.URL; url != "" && !seenURLs[url] {
			seenURLs[url] = true
			rc.SourceURLs = append(rc.SourceURLs, url)
		}
	}

	e.logger.Debug("retrieved context",
		zap.String("question", question),
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(rc.Chunks)))
	return rc, nil
}
