package xps

import (
	"fmt"
	"strings"

	"github.com/tournevent/xpsrate/pkg/price"
	"github.com/tournevent/xpsrate/pkg/shipper"
)

const (
	signatureDirect = "DIRECT"
	billingSender   = "sender"
)

// BuildQuoteRequest builds the quote request of one carrier group. The
// request never carries an empty dimension unit.
func BuildQuoteRequest(shipment *shipper.Shipment, carrierCode string, rounder price.Rounder) (*QuoteRequest, error) {
	if shipment == nil || shipment.Order == nil {
		return nil, fmt.Errorf("%w: shipment has no order", shipper.ErrInvalidShipment)
	}

	dimUnit, err := DimensionUnitFor(shipment.Weight.Unit)
	if err != nil {
		return nil, err
	}

	order := shipment.Order
	currencyCode := strings.TrimSpace(order.Store.DefaultCurrency)
	if currencyCode == "" {
		currencyCode = order.TotalPrice.Currency
	}

	insurance, err := rounder.Round(order.TotalPrice.Amount, currencyCode)
	if err != nil {
		return nil, shipper.NewShipperError(carrierName, shipper.CodeQuoteRequest,
			"cannot round insurance amount for carrier "+carrierCode).WithCause(err)
	}

	dest := shipment.Destination
	return &QuoteRequest{
		CarrierCode: carrierCode,
		Sender: Sender{
			Country: order.Store.CountryCode,
			Zip:     order.Store.PostalCode,
		},
		Receiver: Receiver{
			City:    dest.City,
			Country: dest.CountryCode,
			Zip:     dest.PostalCode,
		},
		Residential:         true,
		SignatureOptionCode: signatureDirect,
		WeightUnit:          string(shipment.Weight.Unit),
		DimUnit:             string(dimUnit),
		Currency:            currencyCode,
		CustomsCurrency:     currencyCode,
		Pieces: []Piece{{
			Weight:          Number{Decimal: shipment.Weight.Value},
			InsuranceAmount: Number{Decimal: insurance},
		}},
		Billing: Billing{Party: billingSender},
	}, nil
}
