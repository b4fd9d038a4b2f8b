package xps

import "strings"

// CarrierGroup is the set of enabled services sharing one carrier code.
type CarrierGroup struct {
	Code         string
	ServiceCodes []string
}

// CarrierCode returns the leading token of a service code, e.g. "usps" for
// "usps_priority". A code without a delimiter is its own carrier code.
func CarrierCode(serviceCode string) string {
	if i := strings.IndexByte(serviceCode, '_'); i >= 0 {
		return serviceCode[:i]
	}
	return serviceCode
}

// GroupByCarrier groups service codes by carrier code. Groups are ordered by
// the first appearance of their carrier code, and repeated service codes are
// kept once.
func GroupByCarrier(serviceCodes []string) []CarrierGroup {
	groups := make([]CarrierGroup, 0)
	index := make(map[string]int)
	seen := make(map[string]struct{}, len(serviceCodes))

	for _, code := range serviceCodes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		carrier := CarrierCode(code)
		i, ok := index[carrier]
		if !ok {
			i = len(groups)
			index[carrier] = i
			groups = append(groups, CarrierGroup{Code: carrier})
		}
		groups[i].ServiceCodes = append(groups[i].ServiceCodes, code)
	}
	return groups
}
