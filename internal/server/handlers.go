package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/chat"
	"github.com/hyperjump/annai/internal/models"
)

type ingestRequest struct {
	URLs  []string `json:"urls"`
	Force bool     `json:"force"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// An empty body means "ingest the configured sources", same as {}.
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	urls := req.URLs
	if len(urls) == 0 {
		urls = s.config.Sources.URLs
	}
	if len(urls) == 0 {
		s.respondError(w, http.StatusBadRequest, "no URLs provided and no defaults configured")
		return
	}

	s.logger.Debug("ingest request", zap.Int("urls", len(urls)), zap.Bool("force", req.Force))
	summary, err := s.ingestor.IngestAll(r.Context(), urls, req.Force)
	if err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.logger.Debug("chat request", zap.String("question", req.Question))
	response, err := s.chat.Ask(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuestion) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("chat failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	exchanges, err := s.chat.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if exchanges == nil {
		exchanges = []*models.ChatExchange{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"exchanges": exchanges,
		"count":     len(exchanges),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	indexSize, err := s.index.Size(ctx)
	if err != nil {
		s.logger.Error("status: index size failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"vector_index_size": indexSize,
	}
	if s.storage != nil {
		exchanges, err := s.storage.CountExchanges(ctx)
		if err != nil {
			s.logger.Error("status: count exchanges failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["chat_exchanges"] = exchanges
	}
	resp["config"] = map[string]interface{}{
		"index_type":           s.config.Index.Type,
		"embedding_model":      s.config.Embedding.Model,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"chunk_size":           s.config.Ingest.ChunkSize,
		"chunk_overlap":        s.config.Ingest.ChunkOverlap,
		"top_k":                s.config.Retrieval.TopK,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
