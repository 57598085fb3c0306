// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// Pipeline runs one ask request end to end. Satisfied by pipeline.Orchestrator.
type Pipeline interface {
	Run(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error)
}

// Server is the HTTP server for the Kotae API.
type Server struct {
	pipeline Pipeline
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(pipeline Pipeline, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
	}
}

// router wires middleware and routes. Split out so handler tests can drive
// the full stack without a listening socket.
func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	// HTTP timeout sits above the pipeline's own request budget so the
	// pipeline times out first and reports the stage it was in.
	r.Use(middleware.Timeout(s.config.Pipeline.RequestTimeout() + 10*time.Second))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Post("/ask", s.handleAsk)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
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
