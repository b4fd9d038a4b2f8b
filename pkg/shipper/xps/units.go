package xps

import (
	"fmt"

	"github.com/tournevent/xpsrate/pkg/shipper"
)

// DimensionUnitFor returns the dimension unit XPS expects alongside a weight
// unit: inches for imperial weights, centimeters for metric ones.
func DimensionUnitFor(unit shipper.WeightUnit) (shipper.DimensionUnit, error) {
	switch unit {
	case shipper.WeightOZ, shipper.WeightLB:
		return shipper.DimensionIN, nil
	case shipper.WeightMG, shipper.WeightG, shipper.WeightKG:
		return shipper.DimensionCM, nil
	default:
		return "", shipper.NewShipperError(carrierName, shipper.CodeUnsupportedWeightUnit,
			fmt.Sprintf("no dimension unit for weight unit %q", unit))
	}
}
