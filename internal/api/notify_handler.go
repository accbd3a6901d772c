package api

import (
	"errors"
	"net/http"

	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/mailer"
	"github.com/nimbly/notification-service/internal/pkg/httputil"
)

// SendEmail accepts an outbound email request and hands it to the mailer.
func (h *Handlers) SendEmail(w http.ResponseWriter, r *http.Request) {
	if h.mailer == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "email sending disabled")
		return
	}

	var req domain.EmailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	result, err := h.mailer.Send(r.Context(), &req)
	switch {
	case err == nil:
		httputil.Created(w, result)
	case errors.Is(err, mailer.ErrAllRecipientsSuppressed):
		// 422: the request was well-formed but every recipient is blocked.
		httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, mailer.ErrNoRecipients),
		errors.Is(err, mailer.ErrNoContent),
		errors.Is(err, mailer.ErrNoSender):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
