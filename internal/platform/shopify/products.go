package shopify

import (
	"context"
	"encoding/json"
	"fmt"
)

const productSearchQuery = `
query ($q: String!) {
  products(first: 20, query: $q) {
    edges {
      node {
        id
        title
        featuredImage { url }
        variants(first: 50) {
          edges {
            node {
              id
              title
              image { url }
              selectedOptions { name value }
            }
          }
        }
      }
    }
  }
}`

// SelectedOption is one option dimension of a product variant.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductVariantNode is a raw variant as returned by the platform.
type ProductVariantNode struct {
	ID              string
	Title           string
	ImageURL        string
	SelectedOptions []SelectedOption
}

// ProductNode is a raw catalog product as returned by the platform.
type ProductNode struct {
	ID               string
	Title            string
	FeaturedImageURL string
	Variants         []ProductVariantNode
}

// SearchProducts queries the catalog by free text and returns raw product
// nodes; presentation shaping happens in the catalog service.
func (c *Client) SearchProducts(ctx context.Context, term string) ([]ProductNode, error) {
	data, err := c.Execute(ctx, productSearchQuery, map[string]any{"q": term})
	if err != nil {
		return nil, err
	}

	var result struct {
		Products struct {
			Edges []struct {
				Node struct {
					ID            string `json:"id"`
					Title         string `json:"title"`
					FeaturedImage struct {
						URL string `json:"url"`
					} `json:"featuredImage"`
					Variants struct {
						Edges []struct {
							Node struct {
								ID    string `json:"id"`
								Title string `json:"title"`
								Image struct {
									URL string `json:"url"`
								} `json:"image"`
								SelectedOptions []SelectedOption `json:"selectedOptions"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"variants"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("shopify: decode products: %w", err)
	}

	products := make([]ProductNode, 0, len(result.Products.Edges))
	for _, edge := range result.Products.Edges {
		node := ProductNode{
			ID:               edge.Node.ID,
			Title:            edge.Node.Title,
			FeaturedImageURL: edge.Node.FeaturedImage.URL,
		}
		for _, v := range edge.Node.Variants.Edges {
			node.Variants = append(node.Variants, ProductVariantNode{
				ID:              v.Node.ID,
				Title:           v.Node.Title,
				ImageURL:        v.Node.Image.URL,
				SelectedOptions: v.Node.SelectedOptions,
			})
		}
		products = append(products, node)
	}
	return products, nil
}
