package services

import (
	"context"
	"errors"
	"strings"

	"github.com/orderdesk/api/internal/domain"
	"github.com/orderdesk/api/internal/platform/shopify"
)

// placeholderImageURL backs variants whose product carries no imagery at all.
const placeholderImageURL = "https://cdn.shopify.com/s/files/1/0533/2089/files/placeholder-images-image_large.png"

// CatalogServiceDeps wires the dependencies required by the catalog service.
type CatalogServiceDeps struct {
	Catalog ProductCatalog
}

type catalogService struct {
	catalog ProductCatalog
}

// NewCatalogService constructs a CatalogService validating required
// dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog is required")
	}
	return &catalogService{catalog: deps.Catalog}, nil
}

// Search runs a free-text catalog search and shapes the raw platform nodes
// for the picker: single-variant products get a readable variant title, and
// every variant carries a displayable image.
func (s *catalogService) Search(ctx context.Context, term string) ([]domain.Product, error) {
	nodes, err := s.catalog.SearchProducts(ctx, term)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(nodes))
	for _, node := range nodes {
		product := domain.Product{
			ID:    node.ID,
			Title: node.Title,
		}
		for _, v := range node.Variants {
			product.Variants = append(product.Variants, domain.ProductVariant{
				ID:    v.ID,
				Title: variantTitle(v),
				Image: variantImage(v, node),
			})
		}
		products = append(products, product)
	}
	return products, nil
}

// variantTitle replaces the platform's "Default Title" placeholder with the
// variant's option values when any carry real information.
func variantTitle(v shopify.ProductVariantNode) string {
	if v.Title != "Default Title" {
		return v.Title
	}
	var parts []string
	for _, opt := range v.SelectedOptions {
		if opt.Name == "Title" {
			continue
		}
		if value := strings.TrimSpace(opt.Value); value != "" {
			parts = append(parts, value)
		}
	}
	if len(parts) == 0 {
		return v.Title
	}
	return strings.Join(parts, " / ")
}

func variantImage(v shopify.ProductVariantNode, node shopify.ProductNode) string {
	if v.ImageURL != "" {
		return v.ImageURL
	}
	if node.FeaturedImageURL != "" {
		return node.FeaturedImageURL
	}
	return placeholderImageURL
}
