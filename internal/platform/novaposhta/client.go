package novaposhta

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
	"unicode/utf8"

	"github.com/orderdesk/api/internal/domain"
)

const (
	defaultBaseURL     = "https://api.novaposhta.ua/v2.0/json/"
	defaultSearchLimit = 10
	defaultTimeout     = 15 * time.Second

	// MinSearchTermLength is the shortest term forwarded to the carrier API;
	// anything shorter returns an empty result without a network call.
	MinSearchTermLength = 2
)

// Config configures the carrier directory client.
type Config struct {
	APIKey      string
	BaseURL     string
	SearchLimit int
	HTTPClient  *http.Client
}

// Client is a thin wrapper around the Nova Poshta single-endpoint RPC API.
// It performs one outbound HTTP call per invocation with no caching and no
// retries; failed queries are terminal for that attempt.
type Client struct {
	apiKey  string
	baseURL string
	limit   int
	http    *http.Client
}

// NewClient constructs a Client, validating required configuration.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("novaposhta: api key is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		limit:   limit,
		http:    httpClient,
	}, nil
}

type rpcRequest struct {
	APIKey           string `json:"apiKey"`
	ModelName        string `json:"modelName"`
	CalledMethod     string `json:"calledMethod"`
	MethodProperties any    `json:"methodProperties"`
}

type rpcResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

// The carrier uses slightly different field names across endpoints for the
// same logical attributes. Each struct lists every candidate; coalescing
// happens in a fixed priority order.
type settlementsPage struct {
	Addresses []settlementAddress `json:"Addresses"`
}

type settlementAddress struct {
	Present       string `json:"Present"`
	Description   string `json:"Description"`
	DescriptionRu string `json:"DescriptionRu"`
	DeliveryCity  string `json:"DeliveryCity"`
	Ref           string `json:"Ref"`
	Index1        string `json:"Index1"`
}

type warehouse struct {
	Description   string `json:"Description"`
	DescriptionRu string `json:"DescriptionRu"`
	ShortAddress  string `json:"ShortAddress"`
	Ref           string `json:"Ref"`
	SiteKey       string `json:"SiteKey"`
	Index1        string `json:"Index1"`
}

// SearchCities resolves a free-text term into settlement candidates. Terms
// shorter than MinSearchTermLength yield an empty result with zero calls.
func (c *Client) SearchCities(ctx context.Context, term string) ([]domain.LocationOption, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinSearchTermLength {
		return nil, nil
	}

	data, err := c.call(ctx, "Address", "searchSettlements", map[string]any{
		"CityName": term,
		"Limit":    c.limit,
	})
	if err != nil {
		return nil, err
	}

	var pages []settlementsPage
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("novaposhta: decode settlements: %w", err)
	}
	if len(pages) == 0 {
		return nil, nil
	}

	options := make([]domain.LocationOption, 0, len(pages[0].Addresses))
	for _, a := range pages[0].Addresses {
		label := firstNonEmpty(a.Present, a.Description, a.DescriptionRu)
		value := firstNonEmpty(a.DeliveryCity, a.Ref)
		if label == "" || value == "" {
			continue
		}
		options = append(options, domain.LocationOption{
			Label:      label,
			Value:      value,
			PostalCode: strings.TrimSpace(a.Index1),
		})
	}
	return options, nil
}

// SearchWarehouses resolves pickup points inside a chosen settlement. An
// empty cityRef short-circuits to an empty result: a warehouse reference is
// only meaningful within the city it was returned for.
func (c *Client) SearchWarehouses(ctx context.Context, term, cityRef string) ([]domain.LocationOption, error) {
	cityRef = strings.TrimSpace(cityRef)
	if cityRef == "" {
		return nil, nil
	}
	term = strings.TrimSpace(term)
	if term != "" && utf8.RuneCountInString(term) < MinSearchTermLength {
		return nil, nil
	}

	data, err := c.call(ctx, "Address", "getWarehouses", map[string]any{
		"CityRef":      cityRef,
		"FindByString": term,
		"Limit":        c.limit,
		"Language":     "UA",
	})
	if err != nil {
		return nil, err
	}

	var warehouses []warehouse
	if err := json.Unmarshal(data, &warehouses); err != nil {
		return nil, fmt.Errorf("novaposhta: decode warehouses: %w", err)
	}

	options := make([]domain.LocationOption, 0, len(warehouses))
	for _, w := range warehouses {
		label := firstNonEmpty(w.Description, w.DescriptionRu, w.ShortAddress)
		value := firstNonEmpty(w.Ref, w.SiteKey)
		if label == "" || value == "" {
			continue
		}
		options = append(options, domain.LocationOption{
			Label:      label,
			Value:      value,
			PostalCode: strings.TrimSpace(w.Index1),
		})
	}
	return options, nil
}

func (c *Client) call(ctx context.Context, model, method string, props map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		APIKey:           c.apiKey,
		ModelName:        model,
		CalledMethod:     method,
		MethodProperties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("novaposhta: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("novaposhta: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("novaposhta: %s.%s: %w", model, method, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("novaposhta: read response: %w", err)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("novaposhta: decode response: %w", err)
	}
	if !parsed.Success {
		message := strings.Join(parsed.Errors, ", ")
		if message == "" {
			message = "Nova Poshta API error"
		}
		return nil, fmt.Errorf("novaposhta: %s", message)
	}

	return parsed.Data, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
