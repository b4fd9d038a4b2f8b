package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tournevent/xpsrate/pkg/price"
	"github.com/tournevent/xpsrate/pkg/shipper"
)

// Request/response bodies of the JSON API.

type rateRequest struct {
	Shipment          *shipmentInput `json:"shipment"`
	ShippingMethodIDs []string       `json:"shippingMethodIds,omitempty"`
}

type shipmentInput struct {
	ID          string          `json:"id"`
	Destination shipper.Address `json:"destination"`
	Weight      weightInput     `json:"weight"`
	Order       *orderInput     `json:"order"`
}

type weightInput struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit"`
}

type orderInput struct {
	ID         string        `json:"id"`
	Store      shipper.Store `json:"store"`
	TotalPrice moneyInput    `json:"totalPrice"`
}

type moneyInput struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (r rateRequest) validate() error {
	if r.Shipment == nil {
		return fmt.Errorf("missing 'shipment'")
	}
	// No order is needed before an address has been entered.
	if r.Shipment.Order == nil && !addressToModel(r.Shipment.Destination).IsEmpty() {
		return fmt.Errorf("missing 'shipment.order'")
	}
	if r.Shipment.Weight.Value.IsNegative() {
		return fmt.Errorf("'shipment.weight.value' must not be negative")
	}
	if r.Shipment.Order != nil && r.Shipment.Order.TotalPrice.Amount.IsNegative() {
		return fmt.Errorf("'shipment.order.totalPrice.amount' must not be negative")
	}
	return nil
}

func (s shipmentInput) toModel() *shipper.Shipment {
	shipment := &shipper.Shipment{
		ID:          s.ID,
		Destination: addressToModel(s.Destination),
		Weight: shipper.Weight{
			Value: s.Weight.Value,
			Unit:  shipper.WeightUnit(strings.ToLower(strings.TrimSpace(s.Weight.Unit))),
		},
	}
	if s.Order != nil {
		shipment.Order = &shipper.Order{
			ID:    s.Order.ID,
			Store: s.Order.Store,
			TotalPrice: shipper.Money{
				Amount:   s.Order.TotalPrice.Amount,
				Currency: strings.ToUpper(s.Order.TotalPrice.Currency),
			},
		}
		shipment.Order.Store.DefaultCurrency = strings.ToUpper(shipment.Order.Store.DefaultCurrency)
	}
	return shipment
}

func addressToModel(addr shipper.Address) shipper.Address {
	addr.CountryCode = strings.ToUpper(strings.TrimSpace(addr.CountryCode))
	addr.ProvinceCode = strings.ToUpper(strings.TrimSpace(addr.ProvinceCode))
	addr.PostalCode = strings.TrimSpace(addr.PostalCode)
	return addr
}

type rateResponse struct {
	Rates  []rateOutput  `json:"rates"`
	Errors []errorOutput `json:"errors"`
}

type rateOutput struct {
	ShippingMethodID string `json:"shippingMethodId"`
	ServiceCode      string `json:"serviceCode"`
	ServiceLabel     string `json:"serviceLabel"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
}

type errorOutput struct {
	Carrier string `json:"carrier,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type methodOutput struct {
	ID       string                    `json:"id"`
	Services []shipper.ShippingService `json:"services"`
}

type methodsResponse struct {
	Methods []methodOutput `json:"methods"`
}

type refreshResponse struct {
	Method methodOutput `json:"method"`
	Error  *errorOutput `json:"error,omitempty"`
}

type trackingResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func rateResultToResponse(result *shipper.RateResult) rateResponse {
	resp := rateResponse{
		Rates:  make([]rateOutput, 0, len(result.Rates)),
		Errors: make([]errorOutput, 0, len(result.Errors)),
	}
	for _, r := range result.Rates {
		resp.Rates = append(resp.Rates, rateOutput{
			ShippingMethodID: r.ShippingMethodID,
			ServiceCode:      r.ServiceCode,
			ServiceLabel:     r.ServiceLabel,
			Amount:           formatAmount(r.Amount),
			Currency:         r.Amount.Currency,
		})
	}
	for _, err := range result.Errors {
		resp.Errors = append(resp.Errors, *errorToOutput(err))
	}
	return resp
}

// formatAmount renders an amount with the minor units of its currency.
func formatAmount(m shipper.Money) string {
	scale, err := price.Scale(m.Currency)
	if err != nil {
		return m.Amount.String()
	}
	return m.Amount.StringFixed(int32(scale))
}

func methodToOutput(m shipper.Shipper) methodOutput {
	services := m.Services()
	if services == nil {
		services = []shipper.ShippingService{}
	}
	return methodOutput{ID: m.Name(), Services: services}
}

func errorToOutput(err error) *errorOutput {
	var shipperErr *shipper.ShipperError
	if errors.As(err, &shipperErr) {
		return &errorOutput{
			Carrier: shipperErr.Carrier,
			Code:    shipperErr.Code,
			Message: err.Error(),
		}
	}
	code := "INTERNAL"
	if errors.Is(err, shipper.ErrMethodNotFound) {
		code = "METHOD_NOT_FOUND"
	}
	return &errorOutput{Code: code, Message: err.Error()}
}
