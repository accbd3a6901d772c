package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nimbly/notification-service/internal/config"
)

// SetupRoutes configures all routes. The webhook endpoint mounts at its
// configured path outside /api: SNS calls it unauthenticated and its
// response contract differs from the JSON API.
func SetupRoutes(h *Handlers, webhookCfg config.WebhookConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	if webhookCfg.Enabled {
		r.Post(webhookCfg.Path, h.SESWebhook)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/notifications/email", h.SendEmail)

		r.Route("/suppressions", func(r chi.Router) {
			r.Get("/", h.ListSuppressions)
			r.Post("/", h.AddSuppression)
			r.Get("/stats", h.SuppressionStats)
			r.Get("/check", h.CheckSuppression)
			r.Delete("/", h.RemoveSuppression)
		})
	})

	return r
}
