package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/annai/internal/models"
)

type fakeRetriever struct {
	rc  *models.RetrievedContext
	err error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, question string) (*models.RetrievedContext, error) {
	return f.rc, f.err
}

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

type fakeStore struct {
	saved []*models.ChatExchange
}

func (f *fakeStore) SaveExchange(ctx context.Context, e *models.ChatExchange) error {
	f.saved = append(f.saved, e)
	return nil
}

func (f *fakeStore) ListExchanges(ctx context.Context, limit int) ([]*models.ChatExchange, error) {
	return f.saved, nil
}

func (f *fakeStore) CountExchanges(ctx context.Context) (int, error) { return len(f.saved), nil }
func (f *fakeStore) Close() error                                    { return nil }

func grounded() *models.RetrievedContext {
	return &models.RetrievedContext{
		Chunks: []models.RetrievedChunk{
			{Key: "h1_0", Text: "Alaska cruises run May to September.", URL: "https://example.com/alaska", Title: "Alaska", Score: 0.9},
			{Key: "h1_1", Text: "Glacier Bay is a highlight.", URL: "https://example.com/alaska", Title: "Alaska", Score: 0.8},
		},
		SourceURLs: []string{"https://example.com/alaska"},
	}
}

func TestAskGroundedAnswer(t *testing.T) {
	gen := &fakeGenerator{answer: "May to September."}
	store := &fakeStore{}
	svc := NewService(&fakeRetriever{rc: grounded()}, gen, store, nil)

	resp, err := svc.Ask(context.Background(), "when to cruise alaska?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Answer != "May to September." {
		t.Errorf("answer=%q", resp.Answer)
	}
	if len(resp.SourceURLs) != 1 || resp.SourceURLs[0] != "https://example.com/alaska" {
		t.Errorf("sources=%v", resp.SourceURLs)
	}
	if !strings.Contains(gen.prompt, "Alaska cruises run May to September.") {
		t.Error("prompt should carry the retrieved chunks")
	}
	if !strings.Contains(gen.prompt, "when to cruise alaska?") {
		t.Error("prompt should carry the question")
	}
	if len(store.saved) != 1 {
		t.Fatalf("exchange should be recorded, saved=%d", len(store.saved))
	}
	if store.saved[0].Answer != resp.Answer {
		t.Error("recorded answer should match the response")
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	svc := NewService(&fakeRetriever{rc: grounded()}, &fakeGenerator{}, nil, nil)

	if _, err := svc.Ask(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestAskNoContext(t *testing.T) {
	gen := &fakeGenerator{answer: "should not be called"}
	svc := NewService(&fakeRetriever{rc: &models.RetrievedContext{}}, gen, nil, nil)

	resp, err := svc.Ask(context.Background(), "anything?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if gen.prompt != "" {
		t.Error("generator should not run without context")
	}
	if resp.Answer != noContextAnswer {
		t.Errorf("answer=%q", resp.Answer)
	}
	if len(resp.SourceURLs) != 0 {
		t.Errorf("sources=%v", resp.SourceURLs)
	}
}

func TestAskGeneratorFailureFallsBack(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(&fakeRetriever{rc: grounded()}, &fakeGenerator{err: errors.New("rate limited")}, store, nil)

	resp, err := svc.Ask(context.Background(), "when?")
	if err != nil {
		t.Fatalf("internal failure should not surface as error: %v", err)
	}
	if resp.Answer != fallbackAnswer {
		t.Errorf("answer=%q", resp.Answer)
	}
	if len(store.saved) != 0 {
		t.Error("failed answers should not be recorded")
	}
}

func TestAskRetrievalFailureFallsBack(t *testing.T) {
	svc := NewService(&fakeRetriever{err: errors.New("index down")}, &fakeGenerator{}, nil, nil)

	resp, err := svc.Ask(context.Background(), "when?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Answer != fallbackAnswer {
		t.Errorf("answer=%q", resp.Answer)
	}
}

func TestAskWithoutGenerator(t *testing.T) {
	svc := NewService(&fakeRetriever{rc: grounded()}, nil, nil, nil)

	resp, err := svc.Ask(context.Background(), "when?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(resp.Answer, "Alaska cruises run May to September.") {
		t.Errorf("extractive answer should quote the best chunk, got %q", resp.Answer)
	}
	if len(resp.SourceURLs) != 1 {
		t.Errorf("sources=%v", resp.SourceURLs)
	}
}

func TestBuildPromptGroupsBySource(t *testing.T) {
	prompt := BuildPrompt("q", grounded())

	if n := strings.Count(prompt, "Source: Alaska (https://example.com/alaska)"); n != 1 {
		t.Errorf("consecutive chunks from one source should share a heading, got %d", n)
	}
	if !strings.Contains(prompt, "Glacier Bay is a highlight.") {
		t.Error("all chunks should appear")
	}
}
