package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/orderdesk/api/internal/domain"
	"github.com/orderdesk/api/internal/platform/httpx"
	"github.com/orderdesk/api/internal/services"
)

// ProductHandlers exposes the catalog search backing the product picker.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers constructs handlers over the catalog service.
func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes wires the /products endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/search", h.search)
}

func (h *ProductHandlers) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	products, err := h.catalog.Search(ctx, term)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_search_failed", "product search failed", http.StatusBadGateway))
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": products})
}
