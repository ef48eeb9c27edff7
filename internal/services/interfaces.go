package services

import (
	"context"

	"github.com/orderdesk/api/internal/domain"
	"github.com/orderdesk/api/internal/platform/shopify"
)

// CustomerDirectory is the commerce platform surface used to find and create
// customer records.
type CustomerDirectory interface {
	FindCustomerByPhone(ctx context.Context, phone string) (string, error)
	CreateCustomer(ctx context.Context, firstName, lastName, phone string) (string, error)
}

// OrderPlatform is the commerce platform surface driving the draft order
// lifecycle: create, complete, annotate.
type OrderPlatform interface {
	CreateDraftOrder(ctx context.Context, input shopify.DraftOrderInput) (string, error)
	CompleteDraftOrder(ctx context.Context, draftID string, paymentPending bool) (string, error)
	SetMetafields(ctx context.Context, metafields ...shopify.Metafield) error
}

// ProductCatalog is the commerce platform surface for free-text product
// search.
type ProductCatalog interface {
	SearchProducts(ctx context.Context, term string) ([]shopify.ProductNode, error)
}

// LocationDirectory is the carrier surface resolving free-text terms into
// location candidates.
type LocationDirectory interface {
	SearchCities(ctx context.Context, term string) ([]domain.LocationOption, error)
	SearchWarehouses(ctx context.Context, term, cityRef string) ([]domain.LocationOption, error)
}

// CustomerService resolves submissions to exactly one customer record.
type CustomerService interface {
	ResolveCustomer(ctx context.Context, firstName, lastName, rawPhone string) (string, error)
}

// SubmissionService turns a validated order draft request into a finalized
// order on the commerce platform.
type SubmissionService interface {
	Submit(ctx context.Context, req domain.OrderDraftRequest) (domain.SubmissionResult, error)
}

// CatalogService shapes platform catalog results for the picker UI.
type CatalogService interface {
	Search(ctx context.Context, term string) ([]domain.Product, error)
}

// LocationService serves the cascading city and warehouse searches.
type LocationService interface {
	SearchCities(ctx context.Context, term string) ([]domain.LocationOption, error)
	SearchWarehouses(ctx context.Context, term, cityRef string) ([]domain.LocationOption, error)
}
