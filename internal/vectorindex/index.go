// Package vectorindex stores chunk embeddings with their metadata and serves
// nearest-neighbor queries over them.
package vectorindex

import "context"

// IndexType identifies an index backend.
type IndexType string

const (
	IndexTypeMemory   IndexType = "memory"
	IndexTypePgvector IndexType = "pgvector"
)

// Metadata travels with every stored chunk and comes back with query results.
type Metadata struct {
	URL         string `json:"url"`
	URLHash     string `json:"url_hash"`
	Title       string `json:"title"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	ChunkText   string `json:"chunk_text"`
	Source      string `json:"source"`
}

// Record is one chunk ready for storage: a stable key, its embedding, and
// metadata.
type Record struct {
	Key       string
	Embedding []float32
	Metadata  Metadata
}

// Result is a query hit with its similarity score in [0, 1] for normalized
// vectors.
type Result struct {
	Key      string
	Score    float64
	Metadata Metadata
}

// Index is a vector store keyed by chunk key. Upsert overwrites records with
// the same key so re-ingesting a URL replaces its old chunks.
type Index interface {
	Upsert(ctx context.Context, records []Record) (int, error)
	Query(ctx context.Context, embedding []float32, k int) ([]Result, error)
	HasSource(ctx context.Context, urlHash string) (bool, error)
	Size(ctx context.Context) (int, error)
	Close() error
}
