package xps

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/tournevent/xpsrate/pkg/shipper"
)

// APIClient defines the interface for XPS API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// GetServices fetches the customer's service catalog.
	GetServices(ctx context.Context) (*ServicesResponse, error)

	// GetQuote fetches rate quotes for one carrier.
	GetQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)
}

// ============================================================================
// API Request/Response Types (match XPS Ship REST API v1 structure)
// ============================================================================

// ServicesResponse is the catalog returned by
// GET /customers/{customerId}/services
type ServicesResponse struct {
	Services []ServiceEntry `json:"services"`
}

// ServiceEntry is a raw catalog entry. A null country list means
// "all" for supported and "none" for unsupported countries.
type ServiceEntry struct {
	ServiceCode          string   `json:"serviceCode"`
	ServiceLabel         string   `json:"serviceLabel"`
	Inbound              bool     `json:"inbound"`
	SupportedCountries   []string `json:"supportedCountries"`
	UnsupportedCountries []string `json:"unsupportedCountries"`
}

// QuoteRequest represents an XPS rate quote request.
// POST /customers/{customerId}/quote
type QuoteRequest struct {
	CarrierCode         string   `json:"carrierCode"`
	ServiceCode         string   `json:"serviceCode"`     // Empty: all services of the carrier
	PackageTypeCode     string   `json:"packageTypeCode"` // Empty: provider default
	Sender              Sender   `json:"sender"`
	Receiver            Receiver `json:"receiver"`
	Residential         bool     `json:"residential"`
	SignatureOptionCode string   `json:"signatureOptionCode"`
	WeightUnit          string   `json:"weightUnit"`
	DimUnit             string   `json:"dimUnit"`
	Currency            string   `json:"currency"`
	CustomsCurrency     string   `json:"customsCurrency"`
	Pieces              []Piece  `json:"pieces"`
	Billing             Billing  `json:"billing"`
}

// Sender is the origin of a quote request.
type Sender struct {
	Country string `json:"country"`
	Zip     string `json:"zip"`
}

// Receiver is the destination of a quote request.
type Receiver struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Zip     string `json:"zip"`
}

// Piece is one package. Unknown dimensions are sent as null.
type Piece struct {
	Weight          Number  `json:"weight"`
	Length          *Number `json:"length"`
	Width           *Number `json:"width"`
	Height          *Number `json:"height"`
	InsuranceAmount Number  `json:"insuranceAmount"`
	DeclaredValue   *Number `json:"declaredValue"`
}

// Number is a decimal sent as a bare JSON number.
type Number struct {
	decimal.Decimal
}

// MarshalJSON encodes the number without quotes.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.String()), nil
}

// Billing identifies who pays for the shipment.
type Billing struct {
	Party string `json:"party"`
}

// QuoteResponse represents the XPS rate quote response.
type QuoteResponse struct {
	Quotes []Quote `json:"quotes"`
}

// Quote is one priced service offer.
type Quote struct {
	ServiceCode        string          `json:"serviceCode"`
	ServiceDescription string          `json:"serviceDescription"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	Currency           string          `json:"currency"`
}

// APIError represents an error response from the XPS API.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("xps api error %s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status code of the failed call.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// Unwrap maps throttling and outage statuses to the shipper sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return shipper.ErrRateLimitExceeded
	case http.StatusServiceUnavailable:
		return shipper.ErrServiceUnavailable
	default:
		return nil
	}
}
