// Package api serves the calculator page and its JSON API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/metrics"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Dependencies) (*Server, error) {
	if deps.PublicURL == "" {
		deps.PublicURL = cfg.PublicURL
	}
	handler, err := NewHandler(deps)
	if err != nil {
		return nil, err
	}
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware(deps.ServiceName))
	router.Use(LoggingMiddleware)
	router.Use(metrics.Middleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Operational endpoints carry no namespace.
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(NamespaceMiddleware)

		r.Get("/", handler.Page)
		r.Get("/s/{id}", handler.ResolveShortLink)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/estimate", handler.Estimate)
			r.Post("/estimate", handler.ComputeEstimate)

			r.Post("/sessions", handler.CreateSession)
			r.Get("/sessions/{id}", handler.GetSession)
			r.Patch("/sessions/{id}", handler.EditSession)
			r.Delete("/sessions/{id}", handler.DeleteSession)

			r.Post("/share", handler.Share)
			r.Get("/scenarios", handler.ListScenarios)
			r.Get("/scenarios/{id}", handler.GetScenario)

			r.Get("/usage", handler.Usage)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}, nil
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       time.Duration(s.config.ReadTimeout) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
