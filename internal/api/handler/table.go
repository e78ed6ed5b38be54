package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rensmac/sqlgate/internal/api/response"
	"github.com/rensmac/sqlgate/internal/service"
)

// TableHandler handles warehouse catalog endpoints
type TableHandler struct {
	catalogService *service.CatalogService
}

// NewTableHandler creates a new table handler
func NewTableHandler(catalogService *service.CatalogService) *TableHandler {
	return &TableHandler{catalogService: catalogService}
}

// List returns every table visible through the active warehouse
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.catalogService.ListTables(r.Context())
	if err != nil {
		response.InternalError(w, "failed to list tables")
		return
	}

	response.OK(w, catalog)
}

// Preview returns a bounded sample of rows from one table
func (h *TableHandler) Preview(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if table == "" {
		response.BadRequest(w, "missing table name")
		return
	}

	rows := 0
	if raw := r.URL.Query().Get("rows"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, "rows must be a positive integer")
			return
		}
		rows = parsed
	}

	preview, err := h.catalogService.PreviewTable(r.Context(), table, rows)
	if err != nil {
		if errors.Is(err, service.ErrTableNotFound) {
			response.NotFound(w, "table not found")
			return
		}
		writeGateError(w, err)
		return
	}

	response.OK(w, preview)
}
