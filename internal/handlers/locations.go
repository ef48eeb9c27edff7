package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/orderdesk/api/internal/domain"
	"github.com/orderdesk/api/internal/platform/httpx"
	"github.com/orderdesk/api/internal/platform/requestctx"
	"github.com/orderdesk/api/internal/services"
)

// LocationHandlers exposes the cascading city and warehouse searches backing
// the operator's location pickers.
type LocationHandlers struct {
	locations services.LocationService
}

// NewLocationHandlers constructs handlers over the location service.
func NewLocationHandlers(locations services.LocationService) *LocationHandlers {
	return &LocationHandlers{locations: locations}
}

// Routes wires the /locations endpoints onto the provided router.
func (h *LocationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/cities", h.searchCities)
	r.Get("/warehouses", h.searchWarehouses)
}

func (h *LocationHandlers) searchCities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("location_service_unavailable", "location service is unavailable", http.StatusServiceUnavailable))
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	options, err := h.locations.SearchCities(ctx, term)
	if err != nil {
		// A carrier outage degrades the picker to an empty list; the
		// operator can retry by typing again.
		requestctx.Logger(ctx).Warn("city search failed", zap.Error(err))
		writeLocationOptions(w, nil)
		return
	}
	writeLocationOptions(w, options)
}

func (h *LocationHandlers) searchWarehouses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("location_service_unavailable", "location service is unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	term := strings.TrimSpace(query.Get("q"))
	cityRef := strings.TrimSpace(query.Get("city"))

	options, err := h.locations.SearchWarehouses(ctx, term, cityRef)
	if err != nil {
		requestctx.Logger(ctx).Warn("warehouse search failed", zap.String("cityRef", cityRef), zap.Error(err))
		writeLocationOptions(w, nil)
		return
	}
	writeLocationOptions(w, options)
}

// writeLocationOptions always renders a JSON array, never null, so the
// picker's rendering loop stays trivial.
func writeLocationOptions(w http.ResponseWriter, options []domain.LocationOption) {
	if options == nil {
		options = []domain.LocationOption{}
	}
	writeJSONResponse(w, http.StatusOK, options)
}
