package server_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/xpsrate/internal/server"
	"github.com/tournevent/xpsrate/internal/telemetry"
	"github.com/tournevent/xpsrate/pkg/shipper"
	"github.com/tournevent/xpsrate/pkg/shipper/mock"
	"github.com/tournevent/xpsrate/pkg/shipper/xps"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const shipmentJSON = `{
	"shipment": {
		"id": "ship-1",
		"destination": {"city": "Austin", "postalCode": "78701", "countryCode": "us"},
		"weight": {"value": "2.5", "unit": "LB"},
		"order": {
			"id": "order-1",
			"store": {"countryCode": "US", "postalCode": "10001", "defaultCurrency": "USD"},
			"totalPrice": {"amount": 49.99, "currency": "USD"}
		}
	}%s
}`

type rateBody struct {
	Rates []struct {
		ShippingMethodID string `json:"shippingMethodId"`
		ServiceCode      string `json:"serviceCode"`
		ServiceLabel     string `json:"serviceLabel"`
		Amount           string `json:"amount"`
		Currency         string `json:"currency"`
	} `json:"rates"`
	Errors []struct {
		Carrier string `json:"carrier"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func newTestHandler(t *testing.T, methods ...shipper.Shipper) http.Handler {
	t.Helper()

	logger := otelzap.New(zap.NewNop())
	registry := shipper.NewRegistry()
	for _, m := range methods {
		registry.Register(m)
	}

	reg := prometheus.NewRegistry()
	srv := server.New(server.Config{
		Port:     8080,
		Metrics:  telemetry.NewMetrics(reg),
		Gatherer: reg,
	}, registry, logger)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	h := newTestHandler(t, mock.New("alpha"))
	do(t, h, http.MethodPost, "/rates", strings.Replace(shipmentJSON, "%s", "", 1))

	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "xpsrate_requests_total")
}

func TestServer_Rates(t *testing.T) {
	h := newTestHandler(t, mock.New("beta"), mock.New("alpha"))

	rec := do(t, h, http.MethodPost, "/rates", strings.Replace(shipmentJSON, "%s", "", 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body rateBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Rates, 4)
	assert.Equal(t, "alpha", body.Rates[0].ShippingMethodID)
	assert.Equal(t, "beta", body.Rates[2].ShippingMethodID)
	assert.Equal(t, "15.82", body.Rates[0].Amount)
	assert.NotNil(t, body.Errors)
	assert.Empty(t, body.Errors)
}

func TestServer_Rates_SelectedMethods(t *testing.T) {
	h := newTestHandler(t, mock.New("alpha"), mock.New("beta"))

	rec := do(t, h, http.MethodPost, "/rates",
		strings.Replace(shipmentJSON, "%s", `, "shippingMethodIds": ["beta", "gamma"]`, 1))
	require.Equal(t, http.StatusOK, rec.Code)

	var body rateBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Rates, 2)
	assert.Equal(t, "beta", body.Rates[0].ShippingMethodID)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "METHOD_NOT_FOUND", body.Errors[0].Code)
}

func TestServer_Rates_MethodError(t *testing.T) {
	failing := mock.New("alpha")
	failing.Err = shipper.NewShipperError("alpha", shipper.CodeQuoteRequest, "boom")
	h := newTestHandler(t, failing, mock.New("beta"))

	rec := do(t, h, http.MethodPost, "/rates", strings.Replace(shipmentJSON, "%s", "", 1))
	require.Equal(t, http.StatusOK, rec.Code)

	var body rateBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Rates, 2)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "alpha", body.Errors[0].Carrier)
	assert.Equal(t, shipper.CodeQuoteRequest, body.Errors[0].Code)
}

func TestServer_Rates_BadRequest(t *testing.T) {
	h := newTestHandler(t, mock.New("alpha"))

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "invalid json"},
		{"missing shipment", `{}`},
		{"missing order", `{"shipment": {"destination": {"countryCode": "US"}}}`},
		{"negative weight", `{"shipment": {"weight": {"value": -1, "unit": "lb"}, "order": {}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/rates", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestServer_Rates_EmptyDestinationWithoutOrder(t *testing.T) {
	client := xps.NewWithAPIClient(xps.Config{
		MethodID:   "xps-us",
		APIKey:     "key",
		CustomerID: "12345",
	}, xps.NewMockAPIClient(), otelzap.New(zap.NewNop()), nil)
	h := newTestHandler(t, client, mock.New("alpha"))
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/methods/xps-us/refresh", "").Code)

	rec := do(t, h, http.MethodPost, "/rates", `{"shipment": {"destination": {"countryCode": " "}, "weight": {"value": 1, "unit": "lb"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body rateBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotNil(t, body.Rates)
	assert.Empty(t, body.Rates)
	assert.Empty(t, body.Errors)
}

func TestServer_Rates_NoMethods(t *testing.T) {
	rec := do(t, newTestHandler(t), http.MethodPost, "/rates", strings.Replace(shipmentJSON, "%s", "", 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Rates_MethodNotAllowed(t *testing.T) {
	rec := do(t, newTestHandler(t, mock.New("alpha")), http.MethodGet, "/rates", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Rates_XPS(t *testing.T) {
	client := xps.NewWithAPIClient(xps.Config{
		MethodID:   "xps-us",
		APIKey:     "key",
		CustomerID: "12345",
		Services:   []string{"usps_priority", "usps_ground_advantage"},
	}, xps.NewMockAPIClient(), otelzap.New(zap.NewNop()), nil)
	h := newTestHandler(t, client)

	rec := do(t, h, http.MethodPost, "/methods/xps-us/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/rates", strings.Replace(shipmentJSON, "%s", "", 1))
	require.Equal(t, http.StatusOK, rec.Code)

	var body rateBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Rates, 2)
	assert.Equal(t, "usps_priority", body.Rates[0].ServiceCode)
	assert.Equal(t, "8.10", body.Rates[0].Amount)
	assert.Equal(t, "usps_ground_advantage", body.Rates[1].ServiceCode)
}

func TestServer_Methods(t *testing.T) {
	h := newTestHandler(t, mock.New("alpha"))

	rec := do(t, h, http.MethodGet, "/methods", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Methods []struct {
			ID       string                    `json:"id"`
			Services []shipper.ShippingService `json:"services"`
		} `json:"methods"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Methods, 1)
	assert.Equal(t, "alpha", body.Methods[0].ID)
	assert.Len(t, body.Methods[0].Services, 2)
}

func TestServer_Refresh(t *testing.T) {
	m := mock.New("alpha")
	h := newTestHandler(t, m)

	rec := do(t, h, http.MethodPost, "/methods/alpha/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, m.Refreshes())

	rec = do(t, h, http.MethodPost, "/methods/missing/refresh", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Refresh_Failure(t *testing.T) {
	m := mock.New("alpha")
	m.RefreshErr = shipper.NewShipperError("xps", shipper.CodeCatalogFetch, "down").WithCause(errors.New("dial tcp"))
	h := newTestHandler(t, m)

	rec := do(t, h, http.MethodPost, "/methods/alpha/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, shipper.CodeCatalogFetch, body.Error.Code)
}

func TestServer_Tracking(t *testing.T) {
	h := newTestHandler(t, mock.New("alpha"))

	rec := do(t, h, http.MethodGet, "/methods/alpha/tracking/9400", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "https://tracking.example.com/alpha/9400", body["url"])

	rec = do(t, h, http.MethodGet, "/methods/missing/tracking/9400", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Tracking_NotConfigured(t *testing.T) {
	client := xps.NewWithAPIClient(xps.Config{MethodID: "xps-us"}, xps.NewMockAPIClient(), otelzap.New(zap.NewNop()), nil)
	h := newTestHandler(t, client)

	rec := do(t, h, http.MethodGet, "/methods/xps-us/tracking/9400", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
