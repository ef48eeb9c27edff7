package shopify

import (
	"context"
	"encoding/json"
	"fmt"
)

const draftOrderCreateMutation = `
mutation ($draft: DraftOrderInput!) {
  draftOrderCreate(input: $draft) {
    draftOrder { id }
    userErrors { field message }
  }
}`

const draftOrderCompleteMutation = `
mutation completeDraft($id: ID!, $pending: Boolean) {
  draftOrderComplete(id: $id, paymentPending: $pending) {
    draftOrder { id order { id } }
    userErrors { message }
  }
}`

const metafieldsSetMutation = `
mutation setMeta($mfs: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $mfs) {
    userErrors { field message }
  }
}`

// DraftOrderLine is one line item on a draft order.
type DraftOrderLine struct {
	VariantID string
	Quantity  int
}

// ShippingAddress is the recipient address attached to a draft order.
type ShippingAddress struct {
	FirstName string
	LastName  string
	Phone     string
	City      string
	Address1  string
	Zip       string
}

// CustomAttribute is a queryable key/value pair stored on a draft order.
type CustomAttribute struct {
	Key   string
	Value string
}

// DraftOrderInput shapes the platform's DraftOrderInput object.
type DraftOrderInput struct {
	CustomerID string
	Lines      []DraftOrderLine
	Shipping   ShippingAddress
	Tags       []string
	Note       string
	Attributes []CustomAttribute
}

// Metafield is one metadata entry attached to a platform object.
type Metafield struct {
	OwnerID   string
	Namespace string
	Key       string
	Type      string
	Value     string
}

// CreateDraftOrder creates a provisional order and returns its id. Platform
// userErrors are aggregated into a single error.
func (c *Client) CreateDraftOrder(ctx context.Context, input DraftOrderInput) (string, error) {
	lines := make([]map[string]any, 0, len(input.Lines))
	for _, line := range input.Lines {
		lines = append(lines, map[string]any{
			"variantId": line.VariantID,
			"quantity":  line.Quantity,
		})
	}

	attributes := make([]map[string]any, 0, len(input.Attributes))
	for _, attr := range input.Attributes {
		attributes = append(attributes, map[string]any{
			"key":   attr.Key,
			"value": attr.Value,
		})
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	draft := map[string]any{
		"lineItems": lines,
		"shippingAddress": map[string]any{
			"firstName": input.Shipping.FirstName,
			"lastName":  input.Shipping.LastName,
			"phone":     input.Shipping.Phone,
			"city":      input.Shipping.City,
			"address1":  input.Shipping.Address1,
			"zip":       input.Shipping.Zip,
		},
		"phone":            input.Shipping.Phone,
		"tags":             tags,
		"note":             input.Note,
		"customAttributes": attributes,
	}
	if input.CustomerID != "" {
		draft["purchasingEntity"] = map[string]any{"customerId": input.CustomerID}
	}

	data, err := c.Execute(ctx, draftOrderCreateMutation, map[string]any{"draft": draft})
	if err != nil {
		return "", err
	}

	var result struct {
		DraftOrderCreate struct {
			DraftOrder struct {
				ID string `json:"id"`
			} `json:"draftOrder"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"draftOrderCreate"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("shopify: decode draftOrderCreate: %w", err)
	}
	if len(result.DraftOrderCreate.UserErrors) > 0 {
		return "", fmt.Errorf("shopify: %s", joinUserErrors(result.DraftOrderCreate.UserErrors))
	}
	return result.DraftOrderCreate.DraftOrder.ID, nil
}

// CompleteDraftOrder converts a draft into a binding order. paymentPending
// marks the order's payment as outstanding (cash-on-delivery). Returns the
// finalized order id, which the platform may omit.
func (c *Client) CompleteDraftOrder(ctx context.Context, draftID string, paymentPending bool) (string, error) {
	data, err := c.Execute(ctx, draftOrderCompleteMutation, map[string]any{
		"id":      draftID,
		"pending": paymentPending,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		DraftOrderComplete struct {
			DraftOrder struct {
				ID    string `json:"id"`
				Order struct {
					ID string `json:"id"`
				} `json:"order"`
			} `json:"draftOrder"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"draftOrderComplete"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("shopify: decode draftOrderComplete: %w", err)
	}
	if len(result.DraftOrderComplete.UserErrors) > 0 {
		return "", fmt.Errorf("shopify: %s", joinUserErrors(result.DraftOrderComplete.UserErrors))
	}
	return result.DraftOrderComplete.DraftOrder.Order.ID, nil
}

// SetMetafields attaches metadata entries to their owning objects.
func (c *Client) SetMetafields(ctx context.Context, metafields ...Metafield) error {
	mfs := make([]map[string]any, 0, len(metafields))
	for _, mf := range metafields {
		mfs = append(mfs, map[string]any{
			"ownerId":   mf.OwnerID,
			"namespace": mf.Namespace,
			"key":       mf.Key,
			"type":      mf.Type,
			"value":     mf.Value,
		})
	}

	data, err := c.Execute(ctx, metafieldsSetMutation, map[string]any{"mfs": mfs})
	if err != nil {
		return err
	}

	var result struct {
		MetafieldsSet struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("shopify: decode metafieldsSet: %w", err)
	}
	if len(result.MetafieldsSet.UserErrors) > 0 {
		return fmt.Errorf("shopify: %s", joinUserErrors(result.MetafieldsSet.UserErrors))
	}
	return nil
}
