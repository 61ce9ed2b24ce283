package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/annai/internal/chunker"
	"github.com/hyperjump/annai/internal/embedding"
	"github.com/hyperjump/annai/internal/models"
	"github.com/hyperjump/annai/internal/vectorindex"
)

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	page, ok := f.pages[url]
	if !ok {
		return "", errors.New("connection refused")
	}
	return page, nil
}

func page(title, body string) string {
	return fmt.Sprintf("<html><head><title>%s</title></head><body><p>%s</p></body></html>", title, body)
}

func newTestPipeline(t *testing.T, fetcher Fetcher) (*Pipeline, *vectorindex.MemoryIndex) {
	t.Helper()
	idx, err := vectorindex.NewMemoryIndex(16)
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(fetcher, embedding.NewMockEmbedder(16), idx, chunker.New(200, 40, 60), Options{Workers: 2}, nil)
	return p, idx
}

func TestIngestAllResultsInInputOrder(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/a": page("Page A", strings.Repeat("Alaska cruise tips. ", 30)),
		"https://example.com/c": page("Page C", strings.Repeat("Mediterranean ports. ", 30)),
	}}
	p, _ := newTestPipeline(t, fetcher)

	urls := []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}
	summary, err := p.IngestAll(context.Background(), urls, false)
	if err != nil {
		t.Fatalf("IngestAll: %v", err)
	}

	if summary.Status != models.IngestCompleted {
		t.Errorf("status=%q", summary.Status)
	}
	if summary.TotalURLs != 3 || summary.Successful != 2 || summary.Errors != 1 {
		t.Errorf("tally=%d/%d/%d/%d", summary.TotalURLs, summary.Successful, summary.Skipped, summary.Errors)
	}
	for i, url := range urls {
		if summary.Results[i].URL != url {
			t.Errorf("result %d is for %s, want %s", i, summary.Results[i].URL, url)
		}
	}
	if summary.Results[1].Status != models.IngestError || summary.Results[1].Error == "" {
		t.Errorf("unfetchable URL should carry its error, got %+v", summary.Results[1])
	}
	if summary.Results[0].Title != "Page A" {
		t.Errorf("title=%q", summary.Results[0].Title)
	}
	if summary.Results[0].ChunksUpserted == 0 {
		t.Error("successful result should report upserted chunks")
	}
}

func TestIngestAllSkipsIndexedSources(t *testing.T) {
	url := "https://example.com/a"
	fetcher := &fakeFetcher{pages: map[string]string{
		url: page("Page A", strings.Repeat("Alaska cruise tips. ", 30)),
	}}
	p, idx := newTestPipeline(t, fetcher)
	ctx := context.Background()

	first, _ := p.IngestAll(ctx, []string{url}, false)
	if first.Successful != 1 {
		t.Fatalf("first run: %+v", first.Results[0])
	}
	sizeAfterFirst, _ := idx.Size(ctx)

	second, _ := p.IngestAll(ctx, []string{url}, false)
	if second.Skipped != 1 {
		t.Errorf("second run should skip, got %+v", second.Results[0])
	}

	forced, _ := p.IngestAll(ctx, []string{url}, true)
	if forced.Successful != 1 {
		t.Errorf("forced run should re-ingest, got %+v", forced.Results[0])
	}
	sizeAfterForce, _ := idx.Size(ctx)
	if sizeAfterForce != sizeAfterFirst {
		t.Errorf("re-ingestion should overwrite, size %d -> %d", sizeAfterFirst, sizeAfterForce)
	}
}

func TestIngestAllDuplicateURLsInBatch(t *testing.T) {
	url := "https://example.com/a"
	fetcher := &fakeFetcher{pages: map[string]string{
		url: page("Page A", strings.Repeat("Alaska cruise tips. ", 30)),
	}}
	p, _ := newTestPipeline(t, fetcher)

	summary, err := p.IngestAll(context.Background(), []string{url, url, url}, false)
	if err != nil {
		t.Fatalf("IngestAll: %v", err)
	}
	if summary.Successful != 1 || summary.Skipped != 2 {
		t.Errorf("duplicates should collapse to one ingest: %d/%d", summary.Successful, summary.Skipped)
	}
}

func TestIngestAllDuplicateOfFailedURL(t *testing.T) {
	url := "https://example.com/down"
	fetcher := &fakeFetcher{pages: map[string]string{}}
	p, _ := newTestPipeline(t, fetcher)

	summary, err := p.IngestAll(context.Background(), []string{url, url}, false)
	if err != nil {
		t.Fatalf("IngestAll: %v", err)
	}
	if summary.Errors != 2 || summary.Skipped != 0 {
		t.Fatalf("duplicates of a failed URL must mirror the failure: %+v", summary)
	}
	if summary.Results[1].Error != summary.Results[0].Error || summary.Results[1].Error == "" {
		t.Errorf("duplicate should carry the same error, got %+v", summary.Results[1])
	}
}

func TestIngestAllRejectsThinContent(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/thin": page("Thin", "hi"),
	}}
	p, _ := newTestPipeline(t, fetcher)

	summary, _ := p.IngestAll(context.Background(), []string{"https://example.com/thin"}, false)
	r := summary.Results[0]
	if r.Status != models.IngestError {
		t.Fatalf("thin page should error, got %+v", r)
	}
	if !strings.Contains(r.Error, "no usable content") {
		t.Errorf("error=%q", r.Error)
	}
}

func TestIngestAllChunkKeys(t *testing.T) {
	url := "https://example.com/long"
	fetcher := &fakeFetcher{pages: map[string]string{
		url: page("Long", strings.Repeat("A sentence about travel. ", 60)),
	}}
	p, idx := newTestPipeline(t, fetcher)
	ctx := context.Background()

	summary, _ := p.IngestAll(ctx, []string{url}, false)
	r := summary.Results[0]
	if r.ChunksCreated < 2 {
		t.Fatalf("expected multiple chunks, got %d", r.ChunksCreated)
	}

	size, _ := idx.Size(ctx)
	if size != r.ChunksCreated {
		t.Errorf("index size=%d, chunks created=%d; keys must be unique per chunk", size, r.ChunksCreated)
	}
}

func TestIngestAllCancelledContext(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	p, _ := newTestPipeline(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.IngestAll(ctx, []string{"https://example.com/a"}, false); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
