// Package price rounds monetary amounts to their currency's precision.
package price

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Rounder rounds an amount expressed in a currency.
type Rounder interface {
	Round(amount decimal.Decimal, currencyCode string) (decimal.Decimal, error)
}

// CurrencyRounder rounds half away from zero to the ISO 4217 minor unit of
// the currency.
type CurrencyRounder struct {
	kind currency.Kind
}

// NewCurrencyRounder returns a rounder using standard (accounting) precision.
func NewCurrencyRounder() *CurrencyRounder {
	return &CurrencyRounder{kind: currency.Standard}
}

// Round rounds amount to the precision of currencyCode.
func (r *CurrencyRounder) Round(amount decimal.Decimal, currencyCode string) (decimal.Decimal, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(currencyCode)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("unknown currency %q: %w", currencyCode, err)
	}

	scale, increment := r.kind.Rounding(unit)
	if increment <= 1 {
		return amount.Round(int32(scale)), nil
	}

	step := decimal.New(int64(increment), -int32(scale))
	return amount.Div(step).Round(0).Mul(step).Round(int32(scale)), nil
}

// Scale returns the number of minor-unit digits of currencyCode.
func Scale(currencyCode string) (int, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(currencyCode)))
	if err != nil {
		return 0, fmt.Errorf("unknown currency %q: %w", currencyCode, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale, nil
}

var _ Rounder = (*CurrencyRounder)(nil)
