package xps

import (
	"context"
	"fmt"
	"strings"

	"github.com/tournevent/xpsrate/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CountrySet is a list of ISO country codes as sent by the provider. An
// unlisted set is what the provider sends as null: "all countries" for
// supported lists and "no countries" for unsupported ones.
type CountrySet struct {
	listed bool
	codes  map[string]struct{}
}

// NewCountrySet builds a set from provider codes; nil yields an unlisted set.
func NewCountrySet(codes []string) CountrySet {
	if codes == nil {
		return CountrySet{}
	}
	set := CountrySet{listed: true, codes: make(map[string]struct{}, len(codes))}
	for _, code := range codes {
		set.codes[normalizeCountry(code)] = struct{}{}
	}
	return set
}

// Listed reports whether the provider sent an explicit list.
func (s CountrySet) Listed() bool {
	return s.listed
}

// Contains reports whether country is explicitly listed.
func (s CountrySet) Contains(country string) bool {
	_, ok := s.codes[normalizeCountry(country)]
	return ok
}

// CatalogEntry is a validated service catalog entry.
type CatalogEntry struct {
	ServiceCode          string
	ServiceLabel         string
	Inbound              bool
	SupportedCountries   CountrySet
	UnsupportedCountries CountrySet
}

// EligibleFor reports whether the service may be offered for country.
// Rules are evaluated in order and the first match decides.
func (e CatalogEntry) EligibleFor(country string) bool {
	supported, unsupported := e.SupportedCountries, e.UnsupportedCountries
	switch {
	case !supported.Listed() && unsupported.Listed() && !unsupported.Contains(country):
		return true
	case supported.Listed() && supported.Contains(country):
		return true
	case unsupported.Listed() && unsupported.Contains(country):
		return false
	case len(supported.codes) > 0:
		// A non-empty supported list is exhaustive.
		return false
	default:
		return true
	}
}

// ParseCatalog validates raw provider entries. Entries without a code or
// label, with blank country codes, or with a repeated code are rejected.
func ParseCatalog(entries []ServiceEntry) ([]CatalogEntry, error) {
	catalog := make([]CatalogEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for i, raw := range entries {
		code := strings.TrimSpace(raw.ServiceCode)
		if code == "" {
			return nil, malformed(fmt.Sprintf("entry %d has no serviceCode", i))
		}
		if strings.TrimSpace(raw.ServiceLabel) == "" {
			return nil, malformed(fmt.Sprintf("service %q has no serviceLabel", code))
		}
		if _, dup := seen[code]; dup {
			return nil, malformed(fmt.Sprintf("service %q is listed twice", code))
		}
		if err := checkCountries(code, raw.SupportedCountries, raw.UnsupportedCountries); err != nil {
			return nil, err
		}
		seen[code] = struct{}{}

		catalog = append(catalog, CatalogEntry{
			ServiceCode:          code,
			ServiceLabel:         strings.TrimSpace(raw.ServiceLabel),
			Inbound:              raw.Inbound,
			SupportedCountries:   NewCountrySet(raw.SupportedCountries),
			UnsupportedCountries: NewCountrySet(raw.UnsupportedCountries),
		})
	}
	return catalog, nil
}

// EligibleServices returns the enabled services that are present in the
// catalog, outbound, and eligible for country, in enabled order.
func EligibleServices(catalog []CatalogEntry, enabled []string, country string) []shipper.ShippingService {
	byCode := make(map[string]CatalogEntry, len(catalog))
	for _, entry := range catalog {
		if entry.Inbound {
			continue
		}
		byCode[entry.ServiceCode] = entry
	}

	services := make([]shipper.ShippingService, 0, len(enabled))
	seen := make(map[string]struct{}, len(enabled))
	for _, code := range enabled {
		entry, ok := byCode[code]
		if !ok {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		if !entry.EligibleFor(country) {
			continue
		}
		seen[code] = struct{}{}
		services = append(services, shipper.ShippingService{Code: entry.ServiceCode, Label: entry.ServiceLabel})
	}
	return services
}

// Credentials authenticate against the XPS API.
type Credentials struct {
	APIKey     string
	CustomerID string
}

// Complete reports whether both credentials are set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.CustomerID) != ""
}

// CatalogResolver computes the eligible services of a merchant from the
// provider catalog.
type CatalogResolver struct {
	apiClient APIClient
	store     CatalogStore
	logger    *otelzap.Logger
}

// NewCatalogResolver creates a resolver. A nil store disables caching.
func NewCatalogResolver(apiClient APIClient, store CatalogStore, logger *otelzap.Logger) *CatalogResolver {
	return &CatalogResolver{
		apiClient: apiClient,
		store:     store,
		logger:    logger,
	}
}

// Resolve returns the enabled services eligible for storeCountry. When fresh
// is false a cached catalog is used if one exists.
func (r *CatalogResolver) Resolve(ctx context.Context, creds Credentials, enabled []string, storeCountry string, fresh bool) ([]shipper.ShippingService, error) {
	if !creds.Complete() {
		return nil, shipper.NewShipperError(carrierName, shipper.CodeConfigurationMissing,
			"XPS API key and/or customer ID is missing")
	}

	key := catalogKey(creds.CustomerID)
	if !fresh {
		if catalog, ok := r.cached(ctx, key); ok {
			return EligibleServices(catalog, enabled, storeCountry), nil
		}
	}

	raw, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	catalog, err := ParseCatalog(raw)
	if err != nil {
		return nil, err
	}

	// Only catalogs that parse are shared with other instances.
	if r.store != nil {
		if err := r.store.Save(ctx, key, raw); err != nil {
			r.logger.Ctx(ctx).Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return EligibleServices(catalog, enabled, storeCountry), nil
}

// cached returns the stored catalog of key. Unreadable or invalid entries
// count as a miss.
func (r *CatalogResolver) cached(ctx context.Context, key string) ([]CatalogEntry, bool) {
	if r.store == nil {
		return nil, false
	}

	entries, ok, err := r.store.Load(ctx, key)
	if err != nil {
		r.logger.Ctx(ctx).Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	catalog, err := ParseCatalog(entries)
	if err != nil {
		r.logger.Ctx(ctx).Warn("Ignoring invalid cached catalog", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return catalog, true
}

func (r *CatalogResolver) fetch(ctx context.Context) ([]ServiceEntry, error) {
	resp, err := r.apiClient.GetServices(ctx)
	if err != nil {
		return nil, shipper.NewShipperError(carrierName, shipper.CodeCatalogFetch, "failed to fetch service catalog").
			WithCause(err).
			WithStatusCode(shipper.StatusCode(err))
	}
	if resp == nil {
		return nil, shipper.NewShipperError(carrierName, shipper.CodeCatalogFetch, "empty service catalog response")
	}
	return resp.Services, nil
}

func checkCountries(code string, lists ...[]string) error {
	for _, list := range lists {
		for _, country := range list {
			if strings.TrimSpace(country) == "" {
				return malformed(fmt.Sprintf("service %q has a blank country code", code))
			}
		}
	}
	return nil
}

func malformed(message string) error {
	return shipper.NewShipperError(carrierName, shipper.CodeMalformedCatalogEntry, message)
}

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func catalogKey(customerID string) string {
	return "xps:catalog:" + customerID
}
