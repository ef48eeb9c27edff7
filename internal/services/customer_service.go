package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/orderdesk/api/internal/domain"
	"github.com/orderdesk/api/internal/platform/shopify"
)

var (
	// ErrCustomerInvalidInput indicates the caller supplied incomplete
	// customer details.
	ErrCustomerInvalidInput = errors.New("customer: invalid input")
	// ErrCustomerPlatform indicates the commerce platform rejected the
	// lookup or create; terminal for the submission.
	ErrCustomerPlatform = errors.New("customer: platform failure")
)

// CustomerServiceDeps wires the dependencies required by the customer
// resolution service.
type CustomerServiceDeps struct {
	Directory CustomerDirectory
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type customerService struct {
	directory CustomerDirectory
	logger    func(context.Context, string, map[string]any)
}

// NewCustomerService constructs a CustomerService validating required
// dependencies.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Directory == nil {
		return nil, errors.New("customer service: directory is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &customerService{
		directory: deps.Directory,
		logger:    logger,
	}, nil
}

// ResolveCustomer finds or creates exactly one customer record keyed by the
// normalized phone number. Lookup-then-create is not atomic: two concurrent
// submissions with one phone can both miss the lookup. When the platform's
// own uniqueness validation rejects the create, one fallback lookup runs;
// beyond that the race is an accepted limitation.
func (s *customerService) ResolveCustomer(ctx context.Context, firstName, lastName, rawPhone string) (string, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" || strings.TrimSpace(rawPhone) == "" {
		return "", fmt.Errorf("%w: name and phone are required", ErrCustomerInvalidInput)
	}

	phone := domain.NormalizePhone(rawPhone)

	id, err := s.directory.FindCustomerByPhone(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("%w: lookup: %v", ErrCustomerPlatform, err)
	}
	if id != "" {
		s.logger(ctx, "customer.found", map[string]any{"customerId": id})
		return id, nil
	}

	id, err = s.directory.CreateCustomer(ctx, firstName, lastName, phone)
	if err != nil {
		var taken *shopify.ErrCustomerTaken
		if errors.As(err, &taken) {
			// Another submission won the create; the record exists now.
			existing, lookupErr := s.directory.FindCustomerByPhone(ctx, phone)
			if lookupErr == nil && existing != "" {
				s.logger(ctx, "customer.found_after_conflict", map[string]any{"customerId": existing})
				return existing, nil
			}
		}
		return "", fmt.Errorf("%w: create: %v", ErrCustomerPlatform, err)
	}

	s.logger(ctx, "customer.created", map[string]any{"customerId": id})
	return id, nil
}
