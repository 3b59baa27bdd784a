package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

type Server struct {
	dashboard    *services.Dashboard
	mux          *http.ServeMux
	logger       *slog.Logger
	metrics      *observability.Metrics
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
	pageHandlers *handlers.PageHandlers
}

func NewServer(dashboard *services.Dashboard, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		dashboard:    dashboard,
		mux:          http.NewServeMux(),
		logger:       logger,
		metrics:      metrics,
		apiHandlers:  handlers.NewAPIHandlers(dashboard, logger, cfg.Upload.MaxBytes),
		sseHandlers:  handlers.NewSSEHandlers(dashboard, logger),
		pageHandlers: handlers.NewPageHandlers(dashboard, logger, cfg.Upload.MaxBytes),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Pages
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleIndex)
	s.mux.HandleFunc("POST /upload", s.pageHandlers.HandleUpload)
	s.mux.HandleFunc("GET /datasets/{id}", s.pageHandlers.HandleDataset)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/datasets/{id}/report", s.sseHandlers.HandleReport)

	// REST API endpoints
	s.mux.HandleFunc("POST /api/datasets", s.apiHandlers.HandleUpload)
	s.mux.HandleFunc("GET /api/datasets/{id}/branches", s.apiHandlers.HandleBranches)
	s.mux.HandleFunc("GET /api/datasets/{id}/report", s.apiHandlers.HandleReport)
	s.mux.HandleFunc("DELETE /api/datasets/{id}", s.apiHandlers.HandleDelete)

	// Operations
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
