package handler

import (
	"net/http"

	"github.com/rensmac/sqlgate/internal/api/response"
	"github.com/rensmac/sqlgate/internal/domain"
	"github.com/rensmac/sqlgate/internal/service"
)

// SampleHandler serves the curated query library
type SampleHandler struct {
	catalogService *service.CatalogService
}

// NewSampleHandler creates a new sample handler
func NewSampleHandler(catalogService *service.CatalogService) *SampleHandler {
	return &SampleHandler{catalogService: catalogService}
}

// List returns the sample queries, optionally filtered by dashboard page
func (h *SampleHandler) List(w http.ResponseWriter, r *http.Request) {
	samples := h.catalogService.SampleQueries()

	if page := r.URL.Query().Get("page"); page != "" {
		filtered := make([]domain.SampleQuery, 0, len(samples))
		for _, sample := range samples {
			if sample.Page == page {
				filtered = append(filtered, sample)
			}
		}
		samples = filtered
	}

	response.OK(w, samples)
}
