package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const customerByPhoneQuery = `
query ($q: String!) {
  customers(first: 1, query: $q) { edges { node { id } } }
}`

const customerCreateMutation = `
mutation ($input: CustomerInput!) {
  customerCreate(input: $input) {
    customer   { id }
    userErrors { field message }
  }
}`

// ErrCustomerTaken reports a create rejected by the platform's own
// phone-uniqueness validation.
type ErrCustomerTaken struct {
	Message string
}

func (e *ErrCustomerTaken) Error() string { return e.Message }

// FindCustomerByPhone looks up at most one customer by the normalized phone
// number. Returns an empty id when no customer matches.
func (c *Client) FindCustomerByPhone(ctx context.Context, phone string) (string, error) {
	data, err := c.Execute(ctx, customerByPhoneQuery, map[string]any{
		"q": "phone:" + phone,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Customers struct {
			Edges []struct {
				Node struct {
					ID string `json:"id"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"customers"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("shopify: decode customers: %w", err)
	}
	if len(result.Customers.Edges) == 0 {
		return "", nil
	}
	return result.Customers.Edges[0].Node.ID, nil
}

// CreateCustomer creates a customer record and returns its id. Platform
// userErrors are aggregated into one message; a phone-uniqueness rejection
// is surfaced as *ErrCustomerTaken so callers can fall back to a lookup.
func (c *Client) CreateCustomer(ctx context.Context, firstName, lastName, phone string) (string, error) {
	data, err := c.Execute(ctx, customerCreateMutation, map[string]any{
		"input": map[string]any{
			"firstName": firstName,
			"lastName":  lastName,
			"phone":     phone,
		},
	})
	if err != nil {
		return "", err
	}

	var result struct {
		CustomerCreate struct {
			Customer struct {
				ID string `json:"id"`
			} `json:"customer"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"customerCreate"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("shopify: decode customerCreate: %w", err)
	}
	if len(result.CustomerCreate.UserErrors) > 0 {
		message := joinUserErrors(result.CustomerCreate.UserErrors)
		if isPhoneTakenMessage(message) {
			return "", &ErrCustomerTaken{Message: message}
		}
		return "", fmt.Errorf("shopify: %s", message)
	}
	return result.CustomerCreate.Customer.ID, nil
}

func isPhoneTakenMessage(message string) bool {
	lowered := strings.ToLower(message)
	return strings.Contains(lowered, "taken") || strings.Contains(lowered, "already been used")
}
