package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// PgvectorIndex is a durable index backed by PostgreSQL with the pgvector
// extension. Cosine distance is computed in the database, so queries stay
// fast as the corpus grows.
type PgvectorIndex struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPgvectorIndex connects to connString and ensures the chunks table and
// its indexes exist.
func NewPgvectorIndex(ctx context.Context, connString string, dimensions int) (*PgvectorIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	idx := &PgvectorIndex{pool: pool, dimensions: dimensions}
	if err := idx.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (p *PgvectorIndex) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			key          TEXT PRIMARY KEY,
			embedding    VECTOR(%d) NOT NULL,
			url          TEXT NOT NULL,
			url_hash     TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			chunk_index  INT NOT NULL,
			total_chunks INT NOT NULL,
			chunk_text   TEXT NOT NULL DEFAULT '',
			source       TEXT NOT NULL DEFAULT '',
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.dimensions),
		`CREATE INDEX IF NOT EXISTS chunks_url_hash_idx ON chunks (url_hash)`,
	}
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

// Upsert writes records in a single transaction, replacing rows that share a
// key. Returns the number of rows written.
func (p *PgvectorIndex) Upsert(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO chunks (key, embedding, url, url_hash, title, chunk_index, total_chunks, chunk_text, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (key) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			url = EXCLUDED.url,
			url_hash = EXCLUDED.url_hash,
			title = EXCLUDED.title,
			chunk_index = EXCLUDED.chunk_index,
			total_chunks = EXCLUDED.total_chunks,
			chunk_text = EXCLUDED.chunk_text,
			source = EXCLUDED.source,
			updated_at = now()`

	for _, r := range records {
		if len(r.Embedding) != p.dimensions {
			return 0, fmt.Errorf("record %s: dimension mismatch: got %d, expected %d", r.Key, len(r.Embedding), p.dimensions)
		}
		m := r.Metadata
		if _, err := tx.Exec(ctx, query,
			r.Key, pgvector.NewVector(r.Embedding),
			m.URL, m.URLHash, m.Title, m.ChunkIndex, m.TotalChunks, m.ChunkText, m.Source,
		); err != nil {
			return 0, fmt.Errorf("upserting %s: %w", r.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing upsert: %w", err)
	}
	return len(records), nil
}

// Query returns the top-k rows by cosine similarity to embedding.
func (p *PgvectorIndex) Query(ctx context.Context, embedding []float32, k int) ([]Result, error) {
	if len(embedding) != p.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(embedding), p.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx, `
		SELECT key, 1 - (embedding <=> $1) AS score,
		       url, url_hash, title, chunk_index, total_chunks, chunk_text, source
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Key, &r.Score,
			&r.Metadata.URL, &r.Metadata.URLHash, &r.Metadata.Title,
			&r.Metadata.ChunkIndex, &r.Metadata.TotalChunks,
			&r.Metadata.ChunkText, &r.Metadata.Source,
		); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// HasSource reports whether any chunk exists for the given URL hash.
func (p *PgvectorIndex) HasSource(ctx context.Context, urlHash string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chunks WHERE url_hash = $1)`, urlHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking source %s: %w", urlHash, err)
	}
	return exists, nil
}

// Size returns the number of stored chunks.
func (p *PgvectorIndex) Size(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Close releases the connection pool.
func (p *PgvectorIndex) Close() error {
	p.pool.Close()
	return nil
}

var _ Index = (*PgvectorIndex)(nil)
