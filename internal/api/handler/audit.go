package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rensmac/sqlgate/internal/api/response"
	"github.com/rensmac/sqlgate/internal/domain"
	"github.com/rensmac/sqlgate/internal/service"
)

// AuditHandler serves the recorded decision trail
type AuditHandler struct {
	recorder *service.AuditRecorder
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(recorder *service.AuditRecorder) *AuditHandler {
	return &AuditHandler{recorder: recorder}
}

// Recent returns the latest audit events, newest first
func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	var filter domain.AuditFilter

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = parsed
	}

	filter.Principal = r.URL.Query().Get("principal")
	if decision := r.URL.Query().Get("decision"); decision != "" {
		filter.Decision = domain.AuditDecision(decision)
	}

	events, err := h.recorder.Recent(r.Context(), filter)
	if err != nil {
		response.InternalError(w, "failed to list audit events")
		return
	}

	response.OK(w, events)
}

// Stats returns decision counts over a trailing window, 24 hours by default
func (h *AuditHandler) Stats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, "hours must be a positive integer")
			return
		}
		hours = parsed
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	counts, err := h.recorder.Stats(r.Context(), since)
	if err != nil {
		response.InternalError(w, "failed to count audit events")
		return
	}

	response.OK(w, map[string]any{
		"since":  since,
		"counts": counts,
	})
}
