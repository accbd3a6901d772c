package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nimbly/notification-service/internal/config"
)

// Server is the HTTP front of the notification service.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a server with all routes wired.
func NewServer(cfg config.ServerConfig, h *Handlers, webhookCfg config.WebhookConfig) *Server {
	return &Server{
		cfg:     cfg,
		handler: SetupRoutes(h, webhookCfg),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
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

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
