package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nimbly/notification-service/internal/domain"
	"github.com/nimbly/notification-service/internal/pkg/httputil"
	"github.com/nimbly/notification-service/internal/service/suppression"
)

// ListSuppressions returns suppression entries, newest first.
// Query params: reason, source, limit (default 50, max 500), offset.
func (h *Handlers) ListSuppressions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := queryInt(q.Get("limit"), 50)
	if limit > 500 {
		limit = 500
	}
	filter := suppression.ListFilter{
		Reason: q.Get("reason"),
		Source: q.Get("source"),
		Limit:  limit,
		Offset: queryInt(q.Get("offset"), 0),
	}

	entries, total, err := h.suppressions.List(r.Context(), filter)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.Suppression{}
	}
	httputil.OK(w, map[string]any{
		"entries": entries,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

type addSuppressionRequest struct {
	Email string `json:"email"`
	Notes string `json:"notes,omitempty"`
}

// AddSuppression manually suppresses an address. Only the hash is stored.
func (h *Handlers) AddSuppression(w http.ResponseWriter, r *http.Request) {
	var req addSuppressionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.BadRequest(w, "email is required")
		return
	}

	notes := req.Notes
	if notes == "" {
		notes = "manually suppressed"
	}
	err := h.suppressions.SuppressAddress(r.Context(), req.Email,
		domain.ReasonManual, domain.SourceManual, notes)
	switch {
	case err == nil:
		httputil.Created(w, map[string]string{"status": "suppressed"})
	case errors.Is(err, suppression.ErrInvalidAddress):
		httputil.BadRequest(w, "email address is not valid")
	default:
		httputil.InternalError(w, err)
	}
}

// CheckSuppression reports whether ?email= is on the suppression list.
func (h *Handlers) CheckSuppression(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httputil.BadRequest(w, "email is required")
		return
	}

	hit, err := h.suppressions.IsAddressSuppressed(r.Context(), email)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]bool{"suppressed": hit})
}

// RemoveSuppression deletes the entry for ?email=.
func (h *Handlers) RemoveSuppression(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httputil.BadRequest(w, "email is required")
		return
	}

	err := h.suppressions.RemoveAddress(r.Context(), email)
	switch {
	case err == nil:
		httputil.NoContent(w)
	case errors.Is(err, suppression.ErrNotFound):
		httputil.NotFound(w, "address is not suppressed")
	default:
		httputil.InternalError(w, err)
	}
}

// SuppressionStats returns aggregate counts by reason and source.
func (h *Handlers) SuppressionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.suppressions.GetStats(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
