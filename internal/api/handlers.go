// Package api exposes the notification service over HTTP: the outbound
// email endpoint, suppression-list administration, and the SNS
// delivery-feedback webhook.
package api

import (
	"net/http"
	"time"

	"github.com/nimbly/notification-service/internal/mailer"
	"github.com/nimbly/notification-service/internal/pkg/httputil"
	"github.com/nimbly/notification-service/internal/service/suppression"
	"github.com/nimbly/notification-service/internal/snswebhook"
)

// Handlers carries the services behind the HTTP endpoints.
type Handlers struct {
	mailer       *mailer.Service
	suppressions *suppression.Service
	webhook      *snswebhook.Processor
	startedAt    time.Time
}

// NewHandlers creates the handler set. The mailer and webhook processor
// may be nil when the corresponding feature is disabled; their endpoints
// then answer 503.
func NewHandlers(m *mailer.Service, s *suppression.Service, w *snswebhook.Processor) *Handlers {
	return &Handlers{
		mailer:       m,
		suppressions: s,
		webhook:      w,
		startedAt:    time.Now().UTC(),
	}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}
