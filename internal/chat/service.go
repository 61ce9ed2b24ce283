package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/models"
	"github.com/hyperjump/annai/internal/storage"
)

// Answers used when the pipeline cannot produce a grounded one.
const (
	noContextAnswer = "I don't have any information about that in my knowledge base. Try ingesting some travel content first."
	fallbackAnswer  = "Sorry, I ran into a problem answering that. Please try again."
)

// ErrEmptyQuestion rejects blank questions before any work happens.
var ErrEmptyQuestion = errors.New("question must not be empty")

// Retriever finds the context relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) (*models.RetrievedContext, error)
}

// Service answers questions from the index and records the exchanges.
type Service struct {
	retriever Retriever
	generator Generator
	store     storage.Storage
	logger    *zap.Logger
}

// NewService wires retrieval, generation, and history together. store may be
// nil to disable history.
func NewService(retriever Retriever, generator Generator, store storage.Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		store:     store,
		logger:    logger,
	}
}

// Ask answers a question grounded in retrieved chunks. Internal failures
// degrade to a fallback answer rather than an error; only a blank question
// is rejected.
func (s *Service) Ask(ctx context.Context, question string) (*models.ChatResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	rc, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		s.logger.Error("retrieval failed", zap.String("question", question), zap.Error(err))
		return &models.ChatResponse{Status: http.StatusOK, Answer: fallbackAnswer, SourceURLs: []string{}}, nil
	}

	if rc.Empty() {
		resp := &models.ChatResponse{Status: http.StatusOK, Answer: noContextAnswer, SourceURLs: []string{}}
		s.record(ctx, question, resp)
		return resp, nil
	}

	if s.generator == nil {
		resp := &models.ChatResponse{
			Status:     http.StatusOK,
			Answer:     extractiveAnswer(rc),
			SourceURLs: rc.SourceURLs,
		}
		s.record(ctx, question, resp)
		return resp, nil
	}

	answer, err := s.generator.Generate(ctx, BuildPrompt(question, rc))
	if err != nil {
		s.logger.Error("answer generation failed", zap.String("question", question), zap.Error(err))
		return &models.ChatResponse{Status: http.StatusOK, Answer: fallbackAnswer, SourceURLs: []string{}}, nil
	}

	resp := &models.ChatResponse{
		Status:     http.StatusOK,
		Answer:     answer,
		SourceURLs: rc.SourceURLs,
	}
	s.record(ctx, question, resp)
	return resp, nil
}

// History returns the most recent exchanges, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*models.ChatExchange, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListExchanges(ctx, limit)
}

// extractiveAnswer quotes the best-matching chunk when no generator is
// configured, so offline runs still answer from the index.
func extractiveAnswer(rc *models.RetrievedContext) string {
	best := rc.Chunks[0]
	return fmt.Sprintf("From %s: %s", best.Title, best.Text)
}

func (s *Service) record(ctx context.Context, question string, resp *models.ChatResponse) {
	if s.store == nil {
		return
	}
	exchange := &models.ChatExchange{
		Question:   question,
		Answer:     resp.Answer,
		SourceURLs: resp.SourceURLs,
	}
	if err := s.store.SaveExchange(ctx, exchange); err != nil {
		s.logger.Warn("failed to record exchange", zap.Error(err))
	}
}
