package services

import (
	"context"
	"errors"
	"sync"

	"github.com/orderdesk/api/internal/domain"
)

// SlotState describes one slot of the cascading resolver.
type SlotState int

const (
	// SlotUnselected is the initial state; no candidate chosen, no search
	// pending.
	SlotUnselected SlotState = iota
	// SlotSearching means a candidate search has been issued and the slot
	// holds the latest refreshed candidate list.
	SlotSearching
	// SlotSelected means an option has been chosen; its opaque reference is
	// the only value handed downstream.
	SlotSelected
)

var (
	// ErrSearchSuperseded reports a search response that arrived after a
	// newer search was issued for the same slot; its results are discarded.
	ErrSearchSuperseded = errors.New("location: search superseded")
	// ErrCityNotSelected reports a warehouse operation attempted before a
	// city was chosen.
	ErrCityNotSelected = errors.New("location: city not selected")
	// ErrNotACandidate reports a selection that is not part of the slot's
	// current candidate list.
	ErrNotACandidate = errors.New("location: option is not a current candidate")
)

type resolverSlot struct {
	state      SlotState
	selected   domain.LocationOption
	candidates []domain.LocationOption
	seq        uint64
}

// LocationResolver is the session-scoped state machine behind the cascading
// city → warehouse pickers. Every search is tagged with a per-slot sequence
// number; a response that is not the latest issued for its slot is dropped,
// so a stale response can never overwrite a fresher one. Selecting a city
// unconditionally invalidates the warehouse slot: a warehouse reference is
// only valid within the city it was returned for.
type LocationResolver struct {
	mu        sync.Mutex
	directory LocationDirectory

	city      resolverSlot
	warehouse resolverSlot
}

// NewLocationResolver constructs a resolver backed by the given directory.
func NewLocationResolver(directory LocationDirectory) (*LocationResolver, error) {
	if directory == nil {
		return nil, errors.New("location resolver: directory is required")
	}
	return &LocationResolver{directory: directory}, nil
}

// SearchCities issues a city search for the current input. An empty term
// resets the slot to Unselected without a directory call.
func (r *LocationResolver) SearchCities(ctx context.Context, term string) ([]domain.LocationOption, error) {
	r.mu.Lock()
	if term == "" {
		r.city = resolverSlot{seq: r.city.seq + 1}
		r.warehouse = resolverSlot{seq: r.warehouse.seq + 1}
		r.mu.Unlock()
		return nil, nil
	}
	r.city.seq++
	seq := r.city.seq
	r.city.state = SlotSearching
	r.mu.Unlock()

	options, err := r.directory.SearchCities(ctx, term)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.city.seq {
		return nil, ErrSearchSuperseded
	}
	if err != nil {
		return nil, err
	}
	r.city.candidates = options
	return options, nil
}

// SearchWarehouses issues a warehouse search scoped to the selected city.
// The slot is only enterable once a city is Selected.
func (r *LocationResolver) SearchWarehouses(ctx context.Context, term string) ([]domain.LocationOption, error) {
	r.mu.Lock()
	if r.city.state != SlotSelected {
		r.mu.Unlock()
		return nil, ErrCityNotSelected
	}
	cityRef := r.city.selected.Value
	r.warehouse.seq++
	seq := r.warehouse.seq
	r.warehouse.state = SlotSearching
	r.mu.Unlock()

	options, err := r.directory.SearchWarehouses(ctx, term, cityRef)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.warehouse.seq {
		return nil, ErrSearchSuperseded
	}
	if err != nil {
		return nil, err
	}
	r.warehouse.candidates = options
	return options, nil
}

// SelectCity pins the city slot to the given option and clears any previous
// warehouse choice, including in-flight warehouse searches.
func (r *LocationResolver) SelectCity(option domain.LocationOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !containsOption(r.city.candidates, option) {
		return ErrNotACandidate
	}
	r.city.state = SlotSelected
	r.city.selected = option
	r.warehouse = resolverSlot{seq: r.warehouse.seq + 1}
	return nil
}

// SelectWarehouse pins the warehouse slot to the given option.
func (r *LocationResolver) SelectWarehouse(option domain.LocationOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.city.state != SlotSelected {
		return ErrCityNotSelected
	}
	if !containsOption(r.warehouse.candidates, option) {
		return ErrNotACandidate
	}
	r.warehouse.state = SlotSelected
	r.warehouse.selected = option
	return nil
}

// City returns the selected city option, if any.
func (r *LocationResolver) City() (domain.LocationOption, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.city.selected, r.city.state == SlotSelected
}

// Warehouse returns the selected warehouse option, if any.
func (r *LocationResolver) Warehouse() (domain.LocationOption, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warehouse.selected, r.warehouse.state == SlotSelected
}

// CityState reports the current state of the city slot.
func (r *LocationResolver) CityState() SlotState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.city.state
}

// WarehouseState reports the current state of the warehouse slot.
func (r *LocationResolver) WarehouseState() SlotState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warehouse.state
}

func containsOption(candidates []domain.LocationOption, option domain.LocationOption) bool {
	for _, c := range candidates {
		if c.Value == option.Value {
			return true
		}
	}
	return false
}
