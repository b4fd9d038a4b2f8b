// Package xps calculates checkout shipping rates through the XPS Ship API.
package xps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/tournevent/xpsrate/pkg/price"
	"github.com/tournevent/xpsrate/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const carrierName = "xps"

const (
	defaultTimeout        = 10 * time.Second
	defaultMaxConcurrency = 4
	defaultStoreCountry   = "US"
)

// DefaultServices are enabled when a method selects none.
var DefaultServices = []string{
	"usps_priority",
	"usps_express",
	"usps_first_class",
	"usps_ground_advantage",
}

// Config holds the configuration of one XPS shipping method.
type Config struct {
	MethodID   string
	APIKey     string
	CustomerID string
	BaseURL    string

	// Services are the merchant-enabled service codes, in display order.
	// Empty enables DefaultServices.
	Services []string
	// ServedCountries are the destinations rates are offered for.
	ServedCountries []string
	// StoreCountry is the country used for catalog eligibility.
	StoreCountry string
	// TrackingURL is a template containing [tracking_code].
	TrackingURL string

	LogRequests  bool
	LogResponses bool

	Timeout           time.Duration // per quote call
	MaxAttempts       int
	MaxConcurrency    int
	RequestsPerSecond float64

	UseMock bool // When true, uses mock API client
}

func (c Config) withDefaults() Config {
	if c.MethodID == "" {
		c.MethodID = carrierName
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if len(c.Services) == 0 {
		c.Services = append([]string(nil), DefaultServices...)
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}
	if strings.TrimSpace(c.StoreCountry) == "" {
		c.StoreCountry = defaultStoreCountry
	}
	if len(c.ServedCountries) == 0 {
		c.ServedCountries = []string{defaultStoreCountry}
	}
	return c
}

// Recorder receives rate calculation metrics.
type Recorder interface {
	RecordRequest(operation, carrier, status string, duration float64)
	RecordError(carrier, errorType string)
	RecordCatalogRefresh(method, status string)
}

type noopRecorder struct{}

func (noopRecorder) RecordRequest(string, string, string, float64) {}
func (noopRecorder) RecordError(string, string)                    {}
func (noopRecorder) RecordCatalogRefresh(string, string)           {}

// Option customizes a Client.
type Option func(*Client)

// WithCatalogStore caches catalogs in store.
func WithCatalogStore(store CatalogStore) Option {
	return func(c *Client) { c.store = store }
}

// WithRounder overrides the insurance amount rounder.
func WithRounder(r price.Rounder) Option {
	return func(c *Client) { c.rounder = r }
}

// WithRecorder reports metrics to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// WithBackOff overrides the retry schedule between quote attempts.
func WithBackOff(b func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = b }
}

// eligibility is an immutable snapshot of the eligible services.
type eligibility struct {
	services []shipper.ShippingService
	codes    []string
	enabled  map[string]struct{}
}

func newEligibility(services []shipper.ShippingService) *eligibility {
	e := &eligibility{
		services: services,
		codes:    make([]string, 0, len(services)),
		enabled:  make(map[string]struct{}, len(services)),
	}
	for _, s := range services {
		e.codes = append(e.codes, s.Code)
		e.enabled[s.Code] = struct{}{}
	}
	return e
}

// Client is the XPS shipping method.
// It implements the shipper.Shipper interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config     Config
	apiClient  APIClient
	store      CatalogStore
	resolver   *CatalogResolver
	rounder    price.Rounder
	metrics    Recorder
	newBackOff func() backoff.BackOff
	payloads   payloadLogger
	served     map[string]struct{}
	logger     *otelzap.Logger
	tracer     trace.Tracer

	eligible atomic.Pointer[eligibility]
}

// New creates a new XPS client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(cfg.httpConfig())
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer, opts...)
}

// httpConfig bounds each HTTP call by the per-call timeout; retries get a
// fresh budget per attempt.
func (c Config) httpConfig() HTTPAPIClientConfig {
	c = c.withDefaults()
	return HTTPAPIClientConfig{
		BaseURL:           c.BaseURL,
		CustomerID:        c.CustomerID,
		APIKey:            c.APIKey,
		Timeout:           c.Timeout,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// NewWithAPIClient creates a new XPS client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(carrierName)
	}

	c := &Client{
		config:    cfg,
		apiClient: apiClient,
		rounder:   price.NewCurrencyRounder(),
		metrics:   noopRecorder{},
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		payloads: payloadLogger{
			logger:    logger,
			requests:  cfg.LogRequests,
			responses: cfg.LogResponses,
		},
		served: make(map[string]struct{}, len(cfg.ServedCountries)),
		logger: logger,
		tracer: tracer,
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, country := range cfg.ServedCountries {
		c.served[normalizeCountry(country)] = struct{}{}
	}
	c.resolver = NewCatalogResolver(apiClient, c.store, logger)
	c.eligible.Store(newEligibility(nil))
	return c
}

// Name returns the shipping method ID.
func (c *Client) Name() string {
	return c.config.MethodID
}

// Services returns the eligible services sorted by label.
func (c *Client) Services() []shipper.ShippingService {
	snapshot := c.eligible.Load()
	services := make([]shipper.ShippingService, len(snapshot.services))
	copy(services, snapshot.services)
	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Label < services[j].Label
	})
	return services
}

// TrackingURL returns the tracking page of code, or "" when no template
// is configured.
func (c *Client) TrackingURL(code string) string {
	return TrackingURL(c.config.TrackingURL, code)
}

// Warm loads the eligible services, preferring a cached catalog.
func (c *Client) Warm(ctx context.Context) error {
	return c.resolve(ctx, false)
}

// Refresh reloads the eligible services from the provider catalog. On
// failure the eligible set becomes empty.
func (c *Client) Refresh(ctx context.Context) error {
	return c.resolve(ctx, true)
}

func (c *Client) resolve(ctx context.Context, fresh bool) error {
	ctx, span := c.tracer.Start(ctx, "xps.ResolveCatalog", trace.WithAttributes(
		attribute.String("shipping.method_id", c.config.MethodID),
		attribute.Bool("catalog.fresh", fresh),
	))
	defer span.End()

	creds := Credentials{APIKey: c.config.APIKey, CustomerID: c.config.CustomerID}
	services, err := c.resolver.Resolve(ctx, creds, c.config.Services, c.config.StoreCountry, fresh)
	if err != nil {
		c.eligible.Store(newEligibility(nil))
		c.logger.Ctx(ctx).Error("XPS catalog unavailable, no services offered",
			zap.String("method_id", c.config.MethodID),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.RecordError(carrierName, errorType(err))
		c.metrics.RecordCatalogRefresh(c.config.MethodID, "error")
		return err
	}

	c.eligible.Store(newEligibility(services))
	c.logger.Ctx(ctx).Info("XPS catalog resolved",
		zap.String("method_id", c.config.MethodID),
		zap.Int("eligible_services", len(services)),
		zap.Int("enabled_services", len(c.config.Services)),
	)
	span.SetAttributes(attribute.Int("catalog.eligible_services", len(services)))
	c.metrics.RecordCatalogRefresh(c.config.MethodID, "success")
	return nil
}

// CalculateRates returns the rates of every eligible service for shipment.
// Failures of individual carrier groups are reported in the result and
// never discard the rates of the other groups.
func (c *Client) CalculateRates(ctx context.Context, shipment *shipper.Shipment) (*shipper.RateResult, error) {
	if shipment == nil {
		return nil, fmt.Errorf("%w: nil shipment", shipper.ErrInvalidShipment)
	}

	// Only attempt to collect rates once an address has been entered.
	if shipment.Destination.IsEmpty() {
		return shipper.Empty(), nil
	}
	if _, ok := c.served[normalizeCountry(shipment.Destination.CountryCode)]; !ok {
		return shipper.Empty(), nil
	}
	if shipment.Order == nil {
		return nil, fmt.Errorf("%w: shipment has no order", shipper.ErrInvalidShipment)
	}

	snapshot := c.eligible.Load()
	if len(snapshot.codes) == 0 {
		c.logger.Ctx(ctx).Debug("No eligible XPS services", zap.String("method_id", c.config.MethodID))
		return shipper.Empty(), nil
	}

	requestID := uuid.New().String()
	groups := GroupByCarrier(snapshot.codes)

	ctx, span := c.tracer.Start(ctx, "xps.CalculateRates", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("shipping.method_id", c.config.MethodID),
		attribute.String("destination.country", shipment.Destination.CountryCode),
		attribute.Int("carrier.groups", len(groups)),
	))
	defer span.End()

	c.logger.Ctx(ctx).Info("Calculating XPS rates",
		zap.String("request_id", requestID),
		zap.String("shipment_id", shipment.ID),
		zap.String("destination_country", shipment.Destination.CountryCode),
		zap.Int("carrier_groups", len(groups)),
	)

	start := time.Now()
	perGroup := make([][]shipper.Rate, len(groups))
	errs := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxConcurrency)
	for i, group := range groups {
		g.Go(func() error {
			perGroup[i], errs[i] = c.rateGroup(gctx, requestID, shipment, group, snapshot)
			return nil
		})
	}
	_ = g.Wait()

	result := shipper.Empty()
	for i, group := range groups {
		if errs[i] != nil {
			c.logger.Ctx(ctx).Warn("XPS carrier group failed",
				zap.String("request_id", requestID),
				zap.String("carrier_code", group.Code),
				zap.Error(errs[i]),
			)
			span.RecordError(errs[i])
			result.Errors = append(result.Errors, errs[i])
			continue
		}
		result.Rates = append(result.Rates, perGroup[i]...)
	}

	status := "success"
	switch {
	case len(result.Errors) == len(groups):
		status = "error"
		span.SetStatus(codes.Error, "all carrier groups failed")
	case len(result.Errors) > 0:
		status = "partial"
	}
	c.metrics.RecordRequest("calculate_rates", carrierName, status, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("rates.count", len(result.Rates)))

	return result, nil
}

func (c *Client) rateGroup(ctx context.Context, requestID string, shipment *shipper.Shipment, group CarrierGroup, snapshot *eligibility) ([]shipper.Rate, error) {
	req, err := BuildQuoteRequest(shipment, group.Code, c.rounder)
	if err != nil {
		c.metrics.RecordError(group.Code, errorType(err))
		return nil, err
	}

	quotes, err := c.fetchQuotes(ctx, requestID, req)
	if err != nil {
		c.metrics.RecordError(group.Code, errorType(err))
		return nil, err
	}

	return MapQuotes(quotes, snapshot.enabled, c.config.MethodID), nil
}

// fetchQuotes calls the quote endpoint, retrying retryable failures up to
// MaxAttempts. Each attempt gets its own timeout.
func (c *Client) fetchQuotes(ctx context.Context, requestID string, req *QuoteRequest) ([]Quote, error) {
	ctx, span := c.tracer.Start(ctx, "xps.GetQuote", trace.WithAttributes(
		attribute.String("carrier.code", req.CarrierCode),
	))
	defer span.End()

	c.payloads.request(ctx, requestID, req)

	start := time.Now()
	attempt := 0
	op := func() (*QuoteResponse, error) {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		resp, err := c.apiClient.GetQuote(callCtx, req)
		if err != nil {
			if ctx.Err() != nil || !shipper.IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			c.logger.Ctx(ctx).Debug("Retrying XPS quote",
				zap.String("request_id", requestID),
				zap.String("carrier_code", req.CarrierCode),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return nil, err
		}
		if resp == nil {
			return nil, backoff.Permanent(errors.New("empty quote response"))
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.config.MaxAttempts)),
	)
	if err != nil {
		c.metrics.RecordRequest("quote", req.CarrierCode, "error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, shipper.NewQuoteRequestError(req.CarrierCode, err)
	}

	c.metrics.RecordRequest("quote", req.CarrierCode, "success", time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("quotes.count", len(resp.Quotes)))
	c.payloads.response(ctx, requestID, req.CarrierCode, resp)
	return resp.Quotes, nil
}

func errorType(err error) string {
	var shipperErr *shipper.ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Code
	}
	return "unknown"
}

var (
	_ shipper.Shipper = (*Client)(nil)
	_ shipper.Tracker = (*Client)(nil)
)
