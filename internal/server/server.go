// Package server provides the HTTP API for Annai.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/config"
	"github.com/hyperjump/annai/internal/models"
	"github.com/hyperjump/annai/internal/storage"
	"github.com/hyperjump/annai/internal/vectorindex"
)

// Ingestor runs an ingestion batch.
type Ingestor interface {
	IngestAll(ctx context.Context, urls []string, force bool) (*models.IngestSummary, error)
}

// Chatter answers questions and serves history.
type Chatter interface {
	Ask(ctx context.Context, question string) (*models.ChatResponse, error)
	History(ctx context.Context, limit int) ([]*models.ChatExchange, error)
}

// Server is the HTTP server for the Annai API.
type Server struct {
	ingestor Ingestor
	chat     Chatter
	index    vectorindex.Index
	storage  storage.Storage
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ingestor Ingestor,
	chat Chatter,
	index vectorindex.Index,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingestor: ingestor,
		chat:     chat,
		index:    index,
		storage:  store,
		config:   cfg,
		logger:   logger,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ingest", s.handleIngest)
	r.Post("/api/v1/chat", s.handleChat)
	r.Get("/api/v1/chat/history", s.handleChatHistory)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
