package xps

import (
	"net/url"
	"strings"
)

// TrackingToken is replaced by the tracking code in tracking URL templates.
const TrackingToken = "[tracking_code]"

// TrackingURL renders template for code. A template without the token gets
// the code appended. An empty template or code yields "".
func TrackingURL(template, code string) string {
	template = strings.TrimSpace(template)
	code = strings.TrimSpace(code)
	if template == "" || code == "" {
		return ""
	}

	escaped := url.PathEscape(code)
	if strings.Contains(template, TrackingToken) {
		return strings.ReplaceAll(template, TrackingToken, escaped)
	}
	return template + escaped
}
