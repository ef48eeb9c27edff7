package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		AccessToken: "shpat_test",
		BaseURL:     server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func graphqlPayload(t *testing.T, r *http.Request) graphqlRequest {
	t.Helper()
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("decode graphql request: %v", err)
	}
	return req
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{ShopDomain: "x.myshopify.com"}); err == nil {
		t.Fatal("expected error for missing access token")
	}
	if _, err := NewClient(Config{AccessToken: "t"}); err == nil {
		t.Fatal("expected error for missing shop domain")
	}
}

func TestExecuteSendsAccessToken(t *testing.T) {
	var token string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Shopify-Access-Token")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	})

	if _, err := client.Execute(context.Background(), "query { shop { id } }", nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if token != "shpat_test" {
		t.Fatalf("access token header = %q", token)
	}
}

func TestExecuteJoinsTopLevelErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{
				{"message": "Throttled"},
				{"message": "Field does not exist"},
			},
		})
	})

	_, err := client.Execute(context.Background(), "query {}", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Throttled") || !strings.Contains(err.Error(), "Field does not exist") {
		t.Fatalf("error does not join messages: %v", err)
	}
}

func TestExecuteRejectsNon2xx(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := client.Execute(context.Background(), "query {}", nil); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestFindCustomerByPhone(t *testing.T) {
	var query string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := graphqlPayload(t, r)
		query, _ = req.Variables["q"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"customers": map[string]any{
					"edges": []map[string]any{
						{"node": map[string]any{"id": "gid://shopify/Customer/1"}},
					},
				},
			},
		})
	})

	id, err := client.FindCustomerByPhone(context.Background(), "+380501234567")
	if err != nil {
		t.Fatalf("FindCustomerByPhone: %v", err)
	}
	if id != "gid://shopify/Customer/1" {
		t.Fatalf("id = %q", id)
	}
	if query != "phone:+380501234567" {
		t.Fatalf("search query = %q", query)
	}
}

func TestFindCustomerByPhoneNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"customers": map[string]any{"edges": []any{}},
			},
		})
	})

	id, err := client.FindCustomerByPhone(context.Background(), "+380501234567")
	if err != nil {
		t.Fatalf("FindCustomerByPhone: %v", err)
	}
	if id != "" {
		t.Fatalf("id = %q, want empty", id)
	}
}

func TestCreateCustomerPhoneTaken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"customerCreate": map[string]any{
					"customer": nil,
					"userErrors": []map[string]any{
						{"field": []string{"phone"}, "message": "Phone has already been taken"},
					},
				},
			},
		})
	})

	_, err := client.CreateCustomer(context.Background(), "Olena", "K", "+380501234567")
	var taken *ErrCustomerTaken
	if !errors.As(err, &taken) {
		t.Fatalf("expected *ErrCustomerTaken, got %v", err)
	}
}

func TestCreateCustomerAggregatesUserErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"customerCreate": map[string]any{
					"userErrors": []map[string]any{
						{"message": "First name is too long"},
						{"message": "Phone is invalid"},
					},
				},
			},
		})
	})

	_, err := client.CreateCustomer(context.Background(), "Olena", "K", "bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "First name is too long") || !strings.Contains(err.Error(), "Phone is invalid") {
		t.Fatalf("user errors not aggregated: %v", err)
	}
}

func TestCreateDraftOrderShapesInput(t *testing.T) {
	var draft map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := graphqlPayload(t, r)
		draft, _ = req.Variables["draft"].(map[string]any)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"draftOrderCreate": map[string]any{
					"draftOrder": map[string]any{"id": "gid://shopify/DraftOrder/9"},
					"userErrors": []any{},
				},
			},
		})
	})

	id, err := client.CreateDraftOrder(context.Background(), DraftOrderInput{
		CustomerID: "gid://shopify/Customer/1",
		Lines: []DraftOrderLine{
			{VariantID: "gid://shopify/ProductVariant/11", Quantity: 2},
		},
		Shipping: ShippingAddress{
			FirstName: "Olena",
			LastName:  "K",
			Phone:     "+380501234567",
			City:      "Київ",
			Address1:  "Відділення №5",
			Zip:       "01001",
		},
		Tags: []string{"COD"},
		Note: "note",
		Attributes: []CustomAttribute{
			{Key: "NP-cityRef", Value: "ref-1"},
		},
	})
	if err != nil {
		t.Fatalf("CreateDraftOrder: %v", err)
	}
	if id != "gid://shopify/DraftOrder/9" {
		t.Fatalf("id = %q", id)
	}

	entity, _ := draft["purchasingEntity"].(map[string]any)
	if entity["customerId"] != "gid://shopify/Customer/1" {
		t.Fatalf("customer not attached: %v", draft["purchasingEntity"])
	}
	lines, _ := draft["lineItems"].([]any)
	if len(lines) != 1 {
		t.Fatalf("lineItems = %v", draft["lineItems"])
	}
	line, _ := lines[0].(map[string]any)
	if line["variantId"] != "gid://shopify/ProductVariant/11" || line["quantity"] != float64(2) {
		t.Fatalf("line = %v", line)
	}
	shipping, _ := draft["shippingAddress"].(map[string]any)
	if shipping["address1"] != "Відділення №5" {
		t.Fatalf("shipping = %v", shipping)
	}
}

func TestCreateDraftOrderOmitsCustomerWhenEmpty(t *testing.T) {
	var draft map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := graphqlPayload(t, r)
		draft, _ = req.Variables["draft"].(map[string]any)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"draftOrderCreate": map[string]any{
					"draftOrder": map[string]any{"id": "gid://shopify/DraftOrder/9"},
				},
			},
		})
	})

	if _, err := client.CreateDraftOrder(context.Background(), DraftOrderInput{}); err != nil {
		t.Fatalf("CreateDraftOrder: %v", err)
	}
	if _, present := draft["purchasingEntity"]; present {
		t.Fatalf("purchasingEntity should be omitted: %v", draft)
	}
}

func TestCompleteDraftOrder(t *testing.T) {
	var variables map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := graphqlPayload(t, r)
		variables = req.Variables
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"draftOrderComplete": map[string]any{
					"draftOrder": map[string]any{
						"id":    "gid://shopify/DraftOrder/9",
						"order": map[string]any{"id": "gid://shopify/Order/77"},
					},
				},
			},
		})
	})

	orderID, err := client.CompleteDraftOrder(context.Background(), "gid://shopify/DraftOrder/9", true)
	if err != nil {
		t.Fatalf("CompleteDraftOrder: %v", err)
	}
	if orderID != "gid://shopify/Order/77" {
		t.Fatalf("orderID = %q", orderID)
	}
	if variables["pending"] != true {
		t.Fatalf("paymentPending not forwarded: %v", variables)
	}
}

func TestCompleteDraftOrderUserError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"draftOrderComplete": map[string]any{
					"userErrors": []map[string]any{
						{"message": "Draft order is already completed"},
					},
				},
			},
		})
	})

	_, err := client.CompleteDraftOrder(context.Background(), "gid://shopify/DraftOrder/9", false)
	if err == nil || !strings.Contains(err.Error(), "already completed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetMetafields(t *testing.T) {
	var variables map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := graphqlPayload(t, r)
		variables = req.Variables
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"metafieldsSet": map[string]any{"userErrors": []any{}},
			},
		})
	})

	err := client.SetMetafields(context.Background(), Metafield{
		OwnerID:   "gid://shopify/Order/77",
		Namespace: "cod",
		Key:       "deposit_amount",
		Type:      "single_line_text_field",
		Value:     "300.00 UAH",
	})
	if err != nil {
		t.Fatalf("SetMetafields: %v", err)
	}

	mfs, _ := variables["mfs"].([]any)
	if len(mfs) != 1 {
		t.Fatalf("mfs = %v", variables["mfs"])
	}
	mf, _ := mfs[0].(map[string]any)
	if mf["namespace"] != "cod" || mf["key"] != "deposit_amount" || mf["value"] != "300.00 UAH" {
		t.Fatalf("metafield = %v", mf)
	}
}

func TestSearchProductsMapsNodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"products": map[string]any{
					"edges": []map[string]any{
						{
							"node": map[string]any{
								"id":            "gid://shopify/Product/1",
								"title":         "Hoodie",
								"featuredImage": map[string]any{"url": "https://cdn/img.png"},
								"variants": map[string]any{
									"edges": []map[string]any{
										{
											"node": map[string]any{
												"id":    "gid://shopify/ProductVariant/11",
												"title": "M / Black",
												"image": map[string]any{"url": ""},
												"selectedOptions": []map[string]any{
													{"name": "Size", "value": "M"},
													{"name": "Color", "value": "Black"},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		})
	})

	nodes, err := client.SearchProducts(context.Background(), "hoodie")
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("nodes = %d", len(nodes))
	}
	node := nodes[0]
	if node.Title != "Hoodie" || node.FeaturedImageURL != "https://cdn/img.png" {
		t.Fatalf("node = %+v", node)
	}
	if len(node.Variants) != 1 || node.Variants[0].Title != "M / Black" {
		t.Fatalf("variants = %+v", node.Variants)
	}
	if len(node.Variants[0].SelectedOptions) != 2 {
		t.Fatalf("selectedOptions = %+v", node.Variants[0].SelectedOptions)
	}
}
