package retrieval

import (
	"context"
	"testing"

	"github.com/hyperjump/annai/internal/embedding"
	"github.com/hyperjump/annai/internal/vectorindex"
)

func seedIndex(t *testing.T, e embedding.Embedder, texts map[string]string) *vectorindex.MemoryIndex {
	t.Helper()
	idx, err := vectorindex.NewMemoryIndex(e.Dimensions())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	i := 0
	for key, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		url := "https://example.com/" + key[:2]
		idx.Upsert(ctx, []vectorindex.Record{{
			Key:       key,
			Embedding: emb,
			Metadata: vectorindex.Metadata{
				URL:        url,
				URLHash:    key[:2],
				Title:      "Page " + key[:2],
				ChunkIndex: i,
				ChunkText:  text,
			},
		}})
		i++
	}
	return idx
}

func TestRetrieveRanksAndDedupes(t *testing.T) {
	e := embedding.NewMockEmbedder(16)
	idx := seedIndex(t, e, map[string]string{
		"aa_0": "alaska glacier cruise",
		"aa_1": "alaska shore excursions",
		"bb_0": "caribbean beach resorts",
	})

	engine := NewEngine(e, idx, 5, 0.1, nil)
	rc, err := engine.Retrieve(context.Background(), "alaska glacier cruise")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if rc.Empty() {
		t.Fatal("expected retrieved chunks")
	}
	if rc.Chunks[0].Key != "aa_0" {
		t.Errorf("best chunk=%s, want exact-text match aa_0", rc.Chunks[0].Key)
	}
	for i := 1; i < len(rc.Chunks); i++ {
		if rc.Chunks[i].Score > rc.Chunks[i-1].Score {
			t.Error("chunks should be in descending score order")
		}
	}

	seen := make(map[string]int)
	for _, url := range rc.SourceURLs {
		seen[url]++
	}
	for url, n := range seen {
		if n > 1 {
			t.Errorf("source URL %s appears %d times", url, n)
		}
	}
	if len(rc.SourceURLs) == 0 || rc.SourceURLs[0] != "https://example.com/aa" {
		t.Errorf("first source should belong to the best chunk, got %v", rc.SourceURLs)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	e := embedding.NewMockEmbedder(16)
	idx, _ := vectorindex.NewMemoryIndex(16)

	rc, err := NewEngine(e, idx, 5, 0.1, nil).Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !rc.Empty() {
		t.Errorf("empty index should yield empty context, got %d chunks", len(rc.Chunks))
	}
}

func TestRetrieveScoreFloor(t *testing.T) {
	e := embedding.NewMockEmbedder(16)
	idx := seedIndex(t, e, map[string]string{
		"aa_0": "alaska glacier cruise",
	})

	// A floor above perfect similarity filters everything out.
	engine := NewEngine(e, idx, 5, 1.1, nil)
	rc, err := engine.Retrieve(context.Background(), "totally unrelated question")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !rc.Empty() {
		t.Errorf("all hits below floor should yield empty context, got %d", len(rc.Chunks))
	}
}
