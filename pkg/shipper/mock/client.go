// Package mock provides a mock shipping method implementation for testing.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/tournevent/xpsrate/pkg/shipper"
)

// Client is a mock shipping method for testing.
type Client struct {
	name string

	// Err, when set, is returned by CalculateRates.
	Err error
	// RefreshErr, when set, is returned by Refresh.
	RefreshErr error

	refreshes atomic.Int32
}

// New creates a new mock shipping method.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the method name.
func (c *Client) Name() string {
	return c.name
}

// Services returns two fixed services.
func (c *Client) Services() []shipper.ShippingService {
	return []shipper.ShippingService{
		{Code: c.name + "_express", Label: fmt.Sprintf("%s Express", c.name)},
		{Code: c.name + "_standard", Label: fmt.Sprintf("%s Standard", c.name)},
	}
}

// Refresh counts the call and returns RefreshErr.
func (c *Client) Refresh(ctx context.Context) error {
	c.refreshes.Add(1)
	return c.RefreshErr
}

// Refreshes returns how many times Refresh was called.
func (c *Client) Refreshes() int {
	return int(c.refreshes.Load())
}

// CalculateRates returns mock rates for any shipment with an address.
func (c *Client) CalculateRates(ctx context.Context, shipment *shipper.Shipment) (*shipper.RateResult, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if shipment == nil || shipment.Destination.IsEmpty() {
		return shipper.Empty(), nil
	}

	return &shipper.RateResult{
		Rates: []shipper.Rate{
			{
				ShippingMethodID: c.name,
				ServiceCode:      c.name + "_standard",
				ServiceLabel:     fmt.Sprintf("%s Standard", c.name),
				Amount:           shipper.Money{Amount: decimal.RequireFromString("15.82"), Currency: "USD"},
			},
			{
				ShippingMethodID: c.name,
				ServiceCode:      c.name + "_express",
				ServiceLabel:     fmt.Sprintf("%s Express", c.name),
				Amount:           shipper.Money{Amount: decimal.RequireFromString("29.95"), Currency: "USD"},
			},
		},
	}, nil
}

// TrackingURL returns a fake tracking page for code.
func (c *Client) TrackingURL(code string) string {
	if code == "" {
		return ""
	}
	return "https://tracking.example.com/" + c.name + "/" + code
}

var (
	_ shipper.Shipper = (*Client)(nil)
	_ shipper.Tracker = (*Client)(nil)
)
