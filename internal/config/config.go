package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/tournevent/xpsrate/pkg/shipper/xps"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// XPS, used when no merchant config file is given
	XPSMethodID          string        `envconfig:"XPS_METHOD_ID" default:"xps"`
	XPSAPIKey            string        `envconfig:"XPS_API_KEY"`
	XPSCustomerID        string        `envconfig:"XPS_CUSTOMER_ID"`
	XPSBaseURL           string        `envconfig:"XPS_BASE_URL" default:"https://xpsshipper.com/restapi/v1"`
	XPSServices          []string      `envconfig:"XPS_SERVICES"`
	XPSServedCountries   []string      `envconfig:"XPS_SERVED_COUNTRIES" default:"US"`
	XPSStoreCountry      string        `envconfig:"XPS_STORE_COUNTRY" default:"US"`
	XPSTrackingURL       string        `envconfig:"XPS_TRACKING_URL"`
	XPSLogRequests       bool          `envconfig:"XPS_LOG_REQUESTS" default:"false"`
	XPSLogResponses      bool          `envconfig:"XPS_LOG_RESPONSES" default:"false"`
	XPSTimeout           time.Duration `envconfig:"XPS_TIMEOUT" default:"10s"`
	XPSMaxAttempts       int           `envconfig:"XPS_MAX_ATTEMPTS" default:"1"`
	XPSMaxConcurrency    int           `envconfig:"XPS_MAX_CONCURRENCY" default:"4"`
	XPSRequestsPerSecond float64       `envconfig:"XPS_REQUESTS_PER_SECOND" default:"0"`
	XPSUseMock           bool          `envconfig:"XPS_USE_MOCK" default:"false"`

	// Merchant shipping methods file (YAML); overrides the XPS_* method
	MerchantConfigFile string `envconfig:"MERCHANT_CONFIG_FILE"`

	// Catalog cache
	RedisURL   string        `envconfig:"REDIS_URL"`
	CatalogTTL time.Duration `envconfig:"CATALOG_TTL" default:"6h"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"xpsrate"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Methods returns the configured shipping methods: the ones of the merchant
// config file when set, otherwise the single method defined by XPS_*.
func (c *Config) Methods() ([]Method, error) {
	if c.MerchantConfigFile != "" {
		return LoadMethods(c.MerchantConfigFile)
	}

	method := Method{
		ID:                c.XPSMethodID,
		APIKey:            c.XPSAPIKey,
		CustomerID:        c.XPSCustomerID,
		BaseURL:           c.XPSBaseURL,
		Services:          c.XPSServices,
		ServedCountries:   c.XPSServedCountries,
		StoreCountry:      c.XPSStoreCountry,
		TrackingURL:       c.XPSTrackingURL,
		LogRequests:       c.XPSLogRequests,
		LogResponses:      c.XPSLogResponses,
		Timeout:           c.XPSTimeout,
		MaxAttempts:       c.XPSMaxAttempts,
		MaxConcurrency:    c.XPSMaxConcurrency,
		RequestsPerSecond: c.XPSRequestsPerSecond,
		UseMock:           c.XPSUseMock,
	}
	if err := validate.Struct(method); err != nil {
		return nil, fmt.Errorf("invalid XPS_* method: %w", err)
	}
	return []Method{method}, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("xps.use_mock", c.XPSUseMock),
		attribute.Bool("catalog.shared_cache", c.RedisURL != ""),
		attribute.Bool("merchant.config_file", c.MerchantConfigFile != ""),
	}
}

// XPSConfig converts a method into the XPS client configuration.
func (m Method) XPSConfig() xps.Config {
	return xps.Config{
		MethodID:          m.ID,
		APIKey:            m.APIKey,
		CustomerID:        m.CustomerID,
		BaseURL:           m.BaseURL,
		Services:          m.Services,
		ServedCountries:   m.ServedCountries,
		StoreCountry:      m.StoreCountry,
		TrackingURL:       m.TrackingURL,
		LogRequests:       m.LogRequests,
		LogResponses:      m.LogResponses,
		Timeout:           m.Timeout,
		MaxAttempts:       m.MaxAttempts,
		MaxConcurrency:    m.MaxConcurrency,
		RequestsPerSecond: m.RequestsPerSecond,
		UseMock:           m.UseMock,
	}
}
