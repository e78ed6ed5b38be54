package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rensmac/sqlgate/internal/api/middleware"
	"github.com/rensmac/sqlgate/internal/api/response"
	"github.com/rensmac/sqlgate/internal/domain"
	"github.com/rensmac/sqlgate/internal/service"
	"github.com/rensmac/sqlgate/internal/sqlguard"
)

// QueryHandler handles query endpoints
type QueryHandler struct {
	queryService *service.QueryService
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(queryService *service.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// Execute runs a query through the gate and against the active warehouse
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.queryService.Execute(r.Context(), principal, req)
	if err != nil {
		writeGateError(w, err)
		return
	}

	response.OK(w, result)
}

// Validate dry-runs a query through the gate without executing it. The
// verdict is the payload, so rejections still answer 200.
func (h *QueryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	validation := h.queryService.Validate(r.Context(), principal, req)
	response.OK(w, validation)
}

// writeGateError maps gate rejections to HTTP statuses. Anything that is not
// a gate rejection is an executor problem and stays opaque to callers.
func writeGateError(w http.ResponseWriter, err error) {
	var verr *sqlguard.ValidationError
	if errors.As(err, &verr) {
		switch verr.Kind {
		case sqlguard.KindRateLimited:
			response.TooManyRequests(w, verr.Message)
		case sqlguard.KindSchemaNotAllowed:
			response.Forbidden(w, verr.Message)
		default:
			response.BadRequest(w, verr.Message)
		}
		return
	}

	response.InternalError(w, "query execution failed")
}
