package shipper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error codes carried by ShipperError.
const (
	CodeConfigurationMissing  = "CONFIGURATION_MISSING"
	CodeCatalogFetch          = "CATALOG_FETCH_ERROR"
	CodeMalformedCatalogEntry = "MALFORMED_CATALOG_ENTRY"
	CodeUnsupportedWeightUnit = "UNSUPPORTED_WEIGHT_UNIT"
	CodeQuoteRequest          = "QUOTE_REQUEST_ERROR"
)

// ShipperError represents an error from the rate provider or the rate pipeline.
type ShipperError struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ShipperError. Errors match other ShipperErrors
// with the same code, and the sentinel registered for their code.
func (e *ShipperError) Is(target error) bool {
	if t, ok := target.(*ShipperError); ok {
		return e.Code == t.Code
	}
	if sentinel, ok := sentinels[e.Code]; ok {
		return target == sentinel
	}
	return false
}

// NewShipperError creates a new ShipperError.
func NewShipperError(carrier, code, message string) *ShipperError {
	return &ShipperError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// Sentinel errors for the rate pipeline.
var (
	// ErrConfigurationMissing indicates the provider credentials are absent.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrCatalogFetch indicates the service catalog could not be fetched.
	ErrCatalogFetch = errors.New("catalog fetch failed")

	// ErrMalformedCatalogEntry indicates the catalog contained an invalid entry.
	ErrMalformedCatalogEntry = errors.New("malformed catalog entry")

	// ErrUnsupportedWeightUnit indicates no dimension unit matches the weight unit.
	ErrUnsupportedWeightUnit = errors.New("unsupported weight unit")

	// ErrQuoteRequest indicates a carrier rate request failed.
	ErrQuoteRequest = errors.New("quote request failed")

	// ErrInvalidShipment indicates the shipment cannot be rated at all.
	ErrInvalidShipment = errors.New("invalid shipment")

	// ErrServiceUnavailable indicates the provider is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateLimitExceeded indicates the provider rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrMethodNotFound indicates the requested shipping method is not registered.
	ErrMethodNotFound = errors.New("shipping method not found")
)

var sentinels = map[string]error{
	CodeConfigurationMissing:  ErrConfigurationMissing,
	CodeCatalogFetch:          ErrCatalogFetch,
	CodeMalformedCatalogEntry: ErrMalformedCatalogEntry,
	CodeUnsupportedWeightUnit: ErrUnsupportedWeightUnit,
	CodeQuoteRequest:          ErrQuoteRequest,
}

// NewQuoteRequestError wraps a failed rate fetch for one carrier code.
// Retryability is derived from the cause.
func NewQuoteRequestError(carrierCode string, cause error) *ShipperError {
	return NewShipperError(carrierCode, CodeQuoteRequest, "rate request failed").
		WithCause(cause).
		WithStatusCode(StatusCode(cause)).
		WithRetryable(IsRetryable(cause))
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Retryable
	}
	if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if code := StatusCode(err); code != 0 {
		return RetryableStatus(code)
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// StatusCode returns the HTTP status code carried by err, or 0.
func StatusCode(err error) int {
	var coded interface{ HTTPStatus() int }
	if errors.As(err, &coded) {
		return coded.HTTPStatus()
	}
	return 0
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
