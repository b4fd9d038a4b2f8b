package xps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/xpsrate/pkg/shipper"
	"github.com/tournevent/xpsrate/pkg/shipper/xps"
)

func TestDimensionUnitFor(t *testing.T) {
	tests := []struct {
		unit shipper.WeightUnit
		want shipper.DimensionUnit
	}{
		{shipper.WeightLB, shipper.DimensionIN},
		{shipper.WeightOZ, shipper.DimensionIN},
		{shipper.WeightKG, shipper.DimensionCM},
		{shipper.WeightG, shipper.DimensionCM},
		{shipper.WeightMG, shipper.DimensionCM},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			got, err := xps.DimensionUnitFor(tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDimensionUnitFor_Unsupported(t *testing.T) {
	for _, unit := range []shipper.WeightUnit{"furlong", "", "LB"} {
		got, err := xps.DimensionUnitFor(unit)
		assert.ErrorIs(t, err, shipper.ErrUnsupportedWeightUnit, "unit %q", unit)
		assert.Empty(t, got)
	}
}
