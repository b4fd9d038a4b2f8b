package xps

import "github.com/tournevent/xpsrate/pkg/shipper"

// MapQuotes converts provider quotes into rates, keeping only quotes whose
// service code is enabled. Quote order is preserved.
func MapQuotes(quotes []Quote, enabled map[string]struct{}, methodID string) []shipper.Rate {
	rates := make([]shipper.Rate, 0, len(quotes))
	for _, q := range quotes {
		if _, ok := enabled[q.ServiceCode]; !ok {
			continue
		}
		rates = append(rates, shipper.Rate{
			ShippingMethodID: methodID,
			ServiceCode:      q.ServiceCode,
			ServiceLabel:     q.ServiceDescription,
			Amount: shipper.Money{
				Amount:   q.TotalAmount,
				Currency: q.Currency,
			},
		})
	}
	return rates
}
