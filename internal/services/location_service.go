package services

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/orderdesk/api/internal/domain"
)

// LocationServiceDeps wires the dependencies of the location search service.
type LocationServiceDeps struct {
	Directory LocationDirectory
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type locationService struct {
	directory LocationDirectory
	collator  *collate.Collator
	logger    func(context.Context, string, map[string]any)
}

// NewLocationService constructs a LocationService validating required
// dependencies.
func NewLocationService(deps LocationServiceDeps) (LocationService, error) {
	if deps.Directory == nil {
		return nil, errors.New("location service: directory is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &locationService{
		directory: deps.Directory,
		// Numeric collation keeps branch labels in natural order
		// (№2 before №10).
		collator: collate.New(language.Ukrainian, collate.Numeric),
		logger:   logger,
	}, nil
}

// SearchCities forwards the term to the carrier directory, preserving the
// carrier's relevance ordering.
func (s *locationService) SearchCities(ctx context.Context, term string) ([]domain.LocationOption, error) {
	options, err := s.directory.SearchCities(ctx, term)
	if err != nil {
		return nil, err
	}
	s.logger(ctx, "location.cities", map[string]any{"count": len(options)})
	return options, nil
}

// SearchWarehouses forwards the term scoped to the chosen city and orders
// the candidates by label with Ukrainian collation.
func (s *locationService) SearchWarehouses(ctx context.Context, term, cityRef string) ([]domain.LocationOption, error) {
	options, err := s.directory.SearchWarehouses(ctx, term, cityRef)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(options, func(i, j int) bool {
		return s.collator.CompareString(options[i].Label, options[j].Label) < 0
	})
	s.logger(ctx, "location.warehouses", map[string]any{"count": len(options)})
	return options, nil
}
