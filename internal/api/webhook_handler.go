package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/nimbly/notification-service/internal/pkg/httputil"
	"github.com/nimbly/notification-service/internal/pkg/logger"
	"github.com/nimbly/notification-service/internal/snswebhook"
)

// maxWebhookBody bounds the SNS request body. SNS messages top out at
// 256 KB; anything bigger is not SNS.
const maxWebhookBody = 1 << 20

// SESWebhook receives SNS delivery-feedback posts. Responses carry no
// detail beyond the status code: SNS ignores bodies, and error text would
// only serve a prober.
func (h *Handlers) SESWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhook == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "webhook disabled")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		logger.Warn("api.webhook.body_read_failed", "error", err.Error())
		httputil.BadRequest(w, "unreadable body")
		return
	}

	typeHint := r.Header.Get("x-amz-sns-message-type")
	err = h.webhook.Process(r.Context(), string(body), typeHint)
	switch {
	case err == nil:
		httputil.NoContent(w)
	case errors.Is(err, snswebhook.ErrMalformedPayload),
		errors.Is(err, snswebhook.ErrUnauthenticated):
		httputil.BadRequest(w, "rejected")
	default:
		httputil.InternalError(w, err)
	}
}
