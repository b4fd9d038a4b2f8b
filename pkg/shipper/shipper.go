// Package shipper provides an abstraction layer for checkout shipping methods.
package shipper

import (
	"context"
)

// Shipper defines the interface that every shipping method must implement.
type Shipper interface {
	// Name returns the shipping method identifier (e.g., "xps_us").
	Name() string

	// Services returns the services currently selectable for this method.
	Services() []ShippingService

	// Refresh re-resolves the selectable services from the provider.
	Refresh(ctx context.Context) error

	// CalculateRates returns rate offers for a shipment.
	CalculateRates(ctx context.Context, shipment *Shipment) (*RateResult, error)
}

// Tracker is implemented by shipping methods that can link to a carrier
// tracking page.
type Tracker interface {
	TrackingURL(code string) string
}
