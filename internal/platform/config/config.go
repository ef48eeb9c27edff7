package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultShopifyAPIVersion    = "2025-01"
	defaultNovaPoshtaBaseURL    = "https://api.novaposhta.ua/v2.0/json/"
	defaultHTTPClientTimeout    = 15 * time.Second
	defaultSearchLimit          = 10
	defaultCODDepositAmount     = "300.00 UAH"
	defaultSuccessRedirect      = "/app/orders"
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Shopify     ShopifyConfig
	NovaPoshta  NovaPoshtaConfig
	Orders      OrdersConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ShopifyConfig stores Admin API access settings for the commerce platform.
type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
}

// NovaPoshtaConfig stores carrier directory API settings.
type NovaPoshtaConfig struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	SearchLimit int
}

// OrdersConfig collects submission behaviour knobs.
type OrdersConfig struct {
	CODDepositAmount string
	SuccessRedirect  string
}

// IdempotencyConfig controls duplicate-submission protection.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError aggregates every invalid or missing configuration field.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid fields: %s", strings.Join(e.fields, ", "))
}

// Fields lists the offending configuration fields.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups.
// Values in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided
// maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from the .env file, the process
// environment, and any explicit overrides, in that order of precedence.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	values, err := environmentValues(options)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		value, ok := values[key]
		return strings.TrimSpace(value), ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Shopify: ShopifyConfig{
			ShopDomain:  stringWithDefault(lookup, "API_SHOPIFY_SHOP_DOMAIN", ""),
			AccessToken: stringWithDefault(lookup, "API_SHOPIFY_ACCESS_TOKEN", ""),
			APIVersion:  stringWithDefault(lookup, "API_SHOPIFY_API_VERSION", defaultShopifyAPIVersion),
			Timeout:     durationWithDefault(lookup, "API_SHOPIFY_TIMEOUT", defaultHTTPClientTimeout),
		},
		NovaPoshta: NovaPoshtaConfig{
			APIKey:      stringWithDefault(lookup, "API_NOVA_POSHTA_API_KEY", ""),
			BaseURL:     stringWithDefault(lookup, "API_NOVA_POSHTA_BASE_URL", defaultNovaPoshtaBaseURL),
			Timeout:     durationWithDefault(lookup, "API_NOVA_POSHTA_TIMEOUT", defaultHTTPClientTimeout),
			SearchLimit: intWithDefault(lookup, "API_NOVA_POSHTA_SEARCH_LIMIT", defaultSearchLimit),
		},
		Orders: OrdersConfig{
			CODDepositAmount: stringWithDefault(lookup, "API_ORDERS_COD_DEPOSIT", defaultCODDepositAmount),
			SuccessRedirect:  stringWithDefault(lookup, "API_ORDERS_SUCCESS_REDIRECT", defaultSuccessRedirect),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var fields []string
	if strings.TrimSpace(cfg.Server.Port) == "" {
		fields = append(fields, "Server.Port")
	}
	if strings.TrimSpace(cfg.Shopify.ShopDomain) == "" {
		fields = append(fields, "Shopify.ShopDomain")
	}
	if strings.TrimSpace(cfg.Shopify.AccessToken) == "" {
		fields = append(fields, "Shopify.AccessToken")
	}
	if strings.TrimSpace(cfg.NovaPoshta.APIKey) == "" {
		fields = append(fields, "NovaPoshta.APIKey")
	}
	if strings.TrimSpace(cfg.NovaPoshta.BaseURL) == "" {
		fields = append(fields, "NovaPoshta.BaseURL")
	}
	if cfg.NovaPoshta.SearchLimit <= 0 {
		fields = append(fields, "NovaPoshta.SearchLimit")
	}
	if strings.TrimSpace(cfg.Orders.CODDepositAmount) == "" {
		fields = append(fields, "Orders.CODDepositAmount")
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{fields: fields}
}

func environmentValues(options loaderOptions) (map[string]string, error) {
	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		for key, value := range source {
			values[key] = value
		}
	}

	merge(dotEnvValues)

	if options.useSystemEnv {
		system := make(map[string]string)
		for _, entry := range os.Environ() {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			if key == "" {
				continue
			}
			system[key] = parts[1]
		}
		merge(system)
	}

	merge(options.envMap)

	return values, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
