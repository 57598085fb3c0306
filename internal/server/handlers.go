package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"go.uber.org/zap"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Questions) == 0 {
		s.respondError(w, http.StatusBadRequest, "questions is required")
		return
	}
	if len(req.Documents)+len(req.Uploads) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one document or upload is required")
		return
	}
	s.logger.Debug("ask request",
		zap.Int("documents", len(req.Documents)),
		zap.Int("uploads", len(req.Uploads)),
		zap.Int("questions", len(req.Questions)),
	)

	response, err := s.pipeline.Run(r.Context(), &req)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		var timeout *pipeline.TimeoutError
		if errors.As(err, &timeout) {
			s.respondError(w, http.StatusGatewayTimeout, timeout.Error())
			return
		}
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"config": map[string]interface{}{
			"chunk_size":               s.config.Pipeline.ChunkSize,
			"chunk_overlap":            s.config.Pipeline.ChunkOverlap,
			"top_k":                    s.config.Pipeline.TopK,
			"min_score":                s.config.Pipeline.MinScore,
			"max_document_size_mb":     s.config.Pipeline.MaxDocumentSizeMB,
			"request_timeout_seconds":  s.config.Pipeline.RequestTimeoutSeconds,
			"index_backend":            s.config.Index.Backend,
			"embedding_model":          s.config.Embedding.Model,
			"embedding_dimensions":     s.config.Embedding.Dimensions,
			"llm_model":                s.config.LLM.Model,
			"max_concurrent_documents": s.config.Pipeline.MaxConcurrentDocuments,
			"max_concurrent_questions": s.config.Pipeline.MaxConcurrentQuestions,
		},
	})
}

// bearerAuth rejects API calls without the configured token. A server with no
// token configured is open.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.config.Server.BearerToken
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
			s.respondError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
