// Package server exposes the generation pipeline over HTTP.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server is the HTTP front of the service.
type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
}

// New builds the router with the standard middleware stack and mounts
// the API routes.
func New(port int, requestTimeout time.Duration, h *Handlers, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(requestTimeout))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "tripsmith")
	})

	r.Get("/healthz", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/itineraries", func(r chi.Router) {
			r.Post("/generate", h.GenerateItinerary)
			r.Get("/validate", h.ValidateRequest)
		})
		r.Route("/ai", func(r chi.Router) {
			r.Get("/providers", h.ListProviders)
			r.Post("/test", h.TestProvider)
			r.Post("/generate", h.GenerateText)
		})
	})

	return &Server{Router: r, Port: port, logger: logger}
}

// Start blocks serving HTTP.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}
