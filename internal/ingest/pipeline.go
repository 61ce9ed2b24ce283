// Package ingest orchestrates the fetch, normalize, chunk, embed, upsert
// pipeline that turns source URLs into searchable chunks.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/chunker"
	"github.com/hyperjump/annai/internal/embedding"
	"github.com/hyperjump/annai/internal/fingerprint"
	"github.com/hyperjump/annai/internal/models"
	"github.com/hyperjump/annai/internal/normalize"
	"github.com/hyperjump/annai/internal/vectorindex"
	"github.com/hyperjump/annai/pkg/utils"
)

// Fetcher retrieves the raw content of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options tune the pipeline. Zero values fall back to sensible defaults.
type Options struct {
	Workers          int
	MinContentLength int
	PreviewLength    int
	SourceTag        string
}

const (
	defaultWorkers          = 4
	defaultMinContentLength = 50
	defaultPreviewLength    = 500
	defaultSourceTag        = "web"
)

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.MinContentLength <= 0 {
		o.MinContentLength = defaultMinContentLength
	}
	if o.PreviewLength <= 0 {
		o.PreviewLength = defaultPreviewLength
	}
	if o.SourceTag == "" {
		o.SourceTag = defaultSourceTag
	}
	return o
}

// Pipeline ingests URLs into the vector index.
type Pipeline struct {
	fetcher  Fetcher
	embedder embedding.Embedder
	index    vectorindex.Index
	chunker  *chunker.Chunker
	opts     Options
	logger   *zap.Logger
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(fetcher Fetcher, embedder embedding.Embedder, index vectorindex.Index, ch *chunker.Chunker, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		fetcher:  fetcher,
		embedder: embedder,
		index:    index,
		chunker:  ch,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// IngestAll processes urls concurrently and returns one result per input URL,
// in input order. A failing URL never aborts the batch; its result carries
// the error. Duplicate URLs within the batch are processed once; the rest
// mirror that outcome (skipped on success, errored on failure). force
// re-ingests URLs the index already holds.
//
// Only context cancellation returns an error, and then the partial summary is
// discarded.
func (p *Pipeline) IngestAll(ctx context.Context, urls []string, force bool) (*models.IngestSummary, error) {
	results := make([]models.IngestResult, len(urls))

	// Only the first occurrence of each hash is dispatched, so workers never
	// race on the same source. Duplicates are settled from its outcome after
	// the workers finish.
	seen := make(map[string]int, len(urls))
	dupOf := make(map[int]int)
	var jobs []int
	for i, url := range urls {
		hash := fingerprint.Hash(url)
		if first, ok := seen[hash]; ok {
			dupOf[i] = first
			continue
		}
		seen[hash] = i
		jobs = append(jobs, i)
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup

	workers := p.opts.Workers
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				results[i] = p.ingestOne(ctx, urls[i], force)
			}
		}()
	}

dispatch:
	for _, i := range jobs {
		select {
		case jobCh <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A duplicate of a failed URL must not read as skipped-because-indexed.
	for i, first := range dupOf {
		r := results[first]
		results[i] = models.IngestResult{URL: urls[i], URLHash: r.URLHash, Status: models.IngestSkipped}
		if r.Status == models.IngestError {
			results[i].Status = models.IngestError
			results[i].Error = r.Error
		}
	}

	summary := &models.IngestSummary{Results: results}
	summary.Tally()
	p.logger.Info("ingestion batch finished",
		zap.Int("total", summary.TotalURLs),
		zap.Int("successful", summary.Successful),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// ingestOne runs the full pipeline for a single URL. All failures are
// reported through the result, never as a panic or batch abort.
func (p *Pipeline) ingestOne(ctx context.Context, url string, force bool) models.IngestResult {
	hash := fingerprint.Hash(url)
	result := models.IngestResult{URL: url, URLHash: hash}

	if !force {
		exists, err := p.index.HasSource(ctx, hash)
		if err != nil {
			return result.Failed(fmt.Errorf("checking index: %w", err))
		}
		if exists {
			p.logger.Debug("source already indexed", zap.String("url", url))
			result.Status = models.IngestSkipped
			return result
		}
	}

	raw, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return result.Failed(err)
	}

	title, text := normalize.Extract(raw)
	text = normalize.Clean(text)
	result.Title = title
	result.ContentLength = len(text)

	if len(text) < p.opts.MinContentLength {
		return result.Failed(fmt.Errorf("no usable content: %d characters after cleaning", len(text)))
	}

	spans := p.chunker.Split(text)
	if len(spans) == 0 {
		return result.Failed(fmt.Errorf("no chunks produced"))
	}
	result.ChunksCreated = len(spans)

	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return result.Failed(fmt.Errorf("embedding chunks: %w", err))
	}

	records := make([]vectorindex.Record, len(spans))
	for i, s := range spans {
		records[i] = vectorindex.Record{
			Key:       fingerprint.ChunkKey(hash, i),
			Embedding: embeddings[i],
			Metadata: vectorindex.Metadata{
				URL:         url,
				URLHash:     hash,
				Title:       title,
				ChunkIndex:  i,
				TotalChunks: len(spans),
				ChunkText:   utils.Preview(s.Text, p.opts.PreviewLength),
				Source:      p.opts.SourceTag,
			},
		}
	}

	upserted, err := p.index.Upsert(ctx, records)
	if err != nil {
		return result.Failed(fmt.Errorf("upserting chunks: %w", err))
	}
	result.ChunksUpserted = upserted
	result.Status = models.IngestSuccess

	p.logger.Info("ingested source",
		zap.String("url", url),
		zap.String("title", title),
		zap.Int("chunks", upserted))
	return result
}
