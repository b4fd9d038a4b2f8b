package shipper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/xpsrate/pkg/shipper"
	"github.com/tournevent/xpsrate/pkg/shipper/mock"
)

func testShipment() *shipper.Shipment {
	return &shipper.Shipment{
		ID: "ship-1",
		Destination: shipper.Address{
			City:        "Austin",
			PostalCode:  "78701",
			CountryCode: "US",
		},
		Weight: shipper.Weight{Value: decimal.RequireFromString("2.5"), Unit: shipper.WeightLB},
		Order: &shipper.Order{
			Store:      shipper.Store{CountryCode: "US", PostalCode: "10001", DefaultCurrency: "USD"},
			TotalPrice: shipper.Money{Amount: decimal.RequireFromString("49.99"), Currency: "USD"},
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("test-method"))

	got, err := registry.Get("test-method")
	require.NoError(t, err, "method should be registered")
	assert.Equal(t, "test-method", got.Name())
}

func TestRegistry_Register_Override(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("test-method"))
	assert.Equal(t, 1, registry.Count())

	// Register again with same name should override
	registry.Register(mock.New("test-method"))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry := shipper.NewRegistry()

	_, err := registry.Get("nonexistent")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrMethodNotFound))
}

func TestRegistry_AllSortedByName(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("method-c"))
	registry.Register(mock.New("method-a"))
	registry.Register(mock.New("method-b"))

	all := registry.All()
	require.Len(t, all, 3)
	assert.Equal(t, "method-a", all[0].Name())
	assert.Equal(t, "method-b", all[1].Name())
	assert.Equal(t, "method-c", all[2].Name())
	assert.Equal(t, []string{"method-a", "method-b", "method-c"}, registry.Names())
}

func TestRegistry_CalculateAll(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("xps_b"))
	registry.Register(mock.New("xps_a"))

	result, err := registry.CalculateAll(context.Background(), testShipment())

	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Rates, 4)
	// Concatenated in method name order regardless of completion order.
	assert.Equal(t, "xps_a", result.Rates[0].ShippingMethodID)
	assert.Equal(t, "xps_a", result.Rates[1].ShippingMethodID)
	assert.Equal(t, "xps_b", result.Rates[2].ShippingMethodID)
}

func TestRegistry_CalculateAll_Empty(t *testing.T) {
	registry := shipper.NewRegistry()

	_, err := registry.CalculateAll(context.Background(), testShipment())

	assert.ErrorIs(t, err, shipper.ErrMethodNotFound)
}

func TestRegistry_CalculateAll_PartialFailure(t *testing.T) {
	registry := shipper.NewRegistry()
	failing := mock.New("broken")
	failing.Err = shipper.ErrInvalidShipment
	registry.Register(failing)
	registry.Register(mock.New("working"))

	result, err := registry.CalculateAll(context.Background(), testShipment())

	require.NoError(t, err)
	assert.Len(t, result.Rates, 2)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], shipper.ErrInvalidShipment)
	assert.Contains(t, result.Errors[0].Error(), "broken")
}

func TestRegistry_CalculateFor_Subset(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("a"))
	registry.Register(mock.New("b"))
	registry.Register(mock.New("c"))

	result, err := registry.CalculateFor(context.Background(), testShipment(), []string{"c", "a"})

	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Rates, 4)
	// Requested order is preserved.
	assert.Equal(t, "c", result.Rates[0].ShippingMethodID)
	assert.Equal(t, "a", result.Rates[2].ShippingMethodID)
}

func TestRegistry_CalculateFor_EmptyNames(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("a"))
	registry.Register(mock.New("b"))

	result, err := registry.CalculateFor(context.Background(), testShipment(), nil)

	require.NoError(t, err)
	assert.Len(t, result.Rates, 4, "should get rates from all methods when empty list")
}

func TestRegistry_CalculateFor_NotFound(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("a"))

	result, err := registry.CalculateFor(context.Background(), testShipment(), []string{"nonexistent"})

	require.NoError(t, err)
	assert.Empty(t, result.Rates)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], shipper.ErrMethodNotFound)
}

func TestRegistry_RefreshAll(t *testing.T) {
	registry := shipper.NewRegistry()
	ok := mock.New("ok")
	broken := mock.New("broken")
	broken.RefreshErr = shipper.ErrCatalogFetch
	registry.Register(ok)
	registry.Register(broken)

	errs := registry.RefreshAll(context.Background())

	assert.Equal(t, 1, ok.Refreshes())
	assert.Equal(t, 1, broken.Refreshes())
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], shipper.ErrCatalogFetch)
}

func TestAddress_IsEmpty(t *testing.T) {
	assert.True(t, shipper.Address{}.IsEmpty())
	assert.True(t, shipper.Address{CountryCode: "  "}.IsEmpty())
	assert.False(t, shipper.Address{CountryCode: "US"}.IsEmpty())
	assert.False(t, shipper.Address{PostalCode: "78701"}.IsEmpty())
}
