package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIVersion = "2025-01"
	defaultTimeout    = 15 * time.Second
)

// Config configures the Admin GraphQL client.
type Config struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
	// BaseURL overrides the endpoint derived from ShopDomain, used in tests.
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the commerce platform's Admin GraphQL API. The platform is
// treated as an opaque transactional boundary: it owns its own consistency
// guarantees, and this client only shapes requests and surfaces errors.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient constructs a Client, validating required configuration.
func NewClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("shopify: access token is required")
	}

	endpoint := strings.TrimSpace(cfg.BaseURL)
	if endpoint == "" {
		domain := strings.TrimSpace(cfg.ShopDomain)
		if domain == "" {
			return nil, errors.New("shopify: shop domain is required")
		}
		version := strings.TrimSpace(cfg.APIVersion)
		if version == "" {
			version = defaultAPIVersion
		}
		endpoint = fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, version)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     httpClient,
	}, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// UserError is a field-level rejection reported inside a mutation payload.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// Execute runs one GraphQL operation and returns the raw data payload.
// Top-level errors are concatenated into a single error.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("shopify: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("shopify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("shopify: read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("shopify: unexpected status %d", res.StatusCode)
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("shopify: decode response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("shopify: %s", joinGraphQLErrors(parsed.Errors))
	}

	return parsed.Data, nil
}

func joinGraphQLErrors(errs []graphqlError) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		if strings.TrimSpace(e.Message) != "" {
			messages = append(messages, e.Message)
		}
	}
	if len(messages) == 0 {
		return "unknown error"
	}
	return strings.Join(messages, "; ")
}

func joinUserErrors(errs []UserError) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		if strings.TrimSpace(e.Message) != "" {
			messages = append(messages, e.Message)
		}
	}
	return strings.Join(messages, "; ")
}
