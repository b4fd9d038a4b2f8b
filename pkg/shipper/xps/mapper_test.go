package xps_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/xpsrate/pkg/shipper"
	"github.com/tournevent/xpsrate/pkg/shipper/xps"
)

func quote(code, description, amount string) xps.Quote {
	return xps.Quote{
		ServiceCode:        code,
		ServiceDescription: description,
		TotalAmount:        decimal.RequireFromString(amount),
		Currency:           "USD",
	}
}

func TestMapQuotes_ExcludesUnmatched(t *testing.T) {
	quotes := []xps.Quote{
		quote("usps_priority", "USPS Priority", "8.10"),
		quote("ups_ground", "UPS Ground", "10.75"),
	}
	enabled := map[string]struct{}{"usps_priority": {}}

	rates := xps.MapQuotes(quotes, enabled, "xps-1")

	require.Len(t, rates, 1)
	assert.Equal(t, "xps-1", rates[0].ShippingMethodID)
	assert.Equal(t, "usps_priority", rates[0].ServiceCode)
	assert.Equal(t, "USPS Priority", rates[0].ServiceLabel)
	assert.True(t, rates[0].Amount.Equal(shipper.Money{Amount: decimal.RequireFromString("8.1"), Currency: "USD"}))
}

func TestMapQuotes_PreservesOrder(t *testing.T) {
	quotes := []xps.Quote{
		quote("usps_express", "Express", "27.35"),
		quote("usps_first_class", "First Class", "5.00"),
		quote("usps_priority", "Priority", "8.10"),
	}
	enabled := map[string]struct{}{"usps_priority": {}, "usps_express": {}, "usps_first_class": {}}

	rates := xps.MapQuotes(quotes, enabled, "xps")

	require.Len(t, rates, 3)
	assert.Equal(t, "usps_express", rates[0].ServiceCode)
	assert.Equal(t, "usps_first_class", rates[1].ServiceCode)
	assert.Equal(t, "usps_priority", rates[2].ServiceCode)
}

func TestMapQuotes_Empty(t *testing.T) {
	rates := xps.MapQuotes(nil, map[string]struct{}{"usps_priority": {}}, "xps")
	assert.NotNil(t, rates)
	assert.Empty(t, rates)
}
