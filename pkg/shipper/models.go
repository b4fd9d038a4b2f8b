package shipper

import (
	"strings"

	"github.com/shopspring/decimal"
)

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightMG WeightUnit = "mg"
	WeightG  WeightUnit = "g"
	WeightKG WeightUnit = "kg"
	WeightOZ WeightUnit = "oz"
	WeightLB WeightUnit = "lb"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
	DimensionIN DimensionUnit = "in"
)

// Address represents a shipping address.
type Address struct {
	Name         string `json:"name,omitempty"`
	Line1        string `json:"line1,omitempty"`
	Line2        string `json:"line2,omitempty"`
	City         string `json:"city,omitempty"`
	ProvinceCode string `json:"provinceCode,omitempty"` // e.g., "NY", "ON"
	PostalCode   string `json:"postalCode,omitempty"`
	CountryCode  string `json:"countryCode,omitempty"` // ISO 3166-1 alpha-2, e.g., "US", "CA"
}

// IsEmpty reports whether no address has been entered yet.
func (a Address) IsEmpty() bool {
	return strings.TrimSpace(a.CountryCode) == "" &&
		strings.TrimSpace(a.PostalCode) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.Line1) == ""
}

// Weight is a weight value with its unit.
type Weight struct {
	Value decimal.Decimal `json:"value"`
	Unit  WeightUnit      `json:"unit"`
}

// Money represents a monetary amount.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Equal reports whether two amounts have the same value and currency.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// Store is the merchant store an order was placed in.
type Store struct {
	CountryCode     string `json:"countryCode"`
	PostalCode      string `json:"postalCode"`
	DefaultCurrency string `json:"defaultCurrency"`
}

// Order is the order a shipment belongs to.
type Order struct {
	ID         string `json:"id,omitempty"`
	Store      Store  `json:"store"`
	TotalPrice Money  `json:"totalPrice"`
}

// Shipment is the read-only input to rate calculation.
type Shipment struct {
	ID          string  `json:"id,omitempty"`
	Destination Address `json:"destination"`
	Weight      Weight  `json:"weight"`
	Order       *Order  `json:"order,omitempty"`
}

// ShippingService is a selectable shipping offering.
type ShippingService struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Rate is a merchant-facing rate offer for one service.
type Rate struct {
	ShippingMethodID string `json:"shippingMethodId"`
	ServiceCode      string `json:"serviceCode"`
	ServiceLabel     string `json:"serviceLabel"`
	Amount           Money  `json:"amount"`
}

// RateResult is the outcome of a rate calculation. Errors holds the
// failures recorded along the way; they never invalidate Rates.
type RateResult struct {
	Rates  []Rate
	Errors []error
}

// Empty returns a result with no rates and no errors.
func Empty() *RateResult {
	return &RateResult{Rates: []Rate{}}
}
