package xps

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetServices func(ctx context.Context) (*ServicesResponse, error)
	OnGetQuote    func(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)

	mu            sync.Mutex
	serviceCalls  int
	quoteRequests []QuoteRequest
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// GetServices returns a mock catalog.
func (m *MockAPIClient) GetServices(ctx context.Context) (*ServicesResponse, error) {
	m.mu.Lock()
	m.serviceCalls++
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", StatusCode: 500}
	}

	if m.OnGetServices != nil {
		return m.OnGetServices(ctx)
	}

	return &ServicesResponse{Services: DefaultMockServices()}, nil
}

// GetQuote returns mock quotes for the request's carrier.
func (m *MockAPIClient) GetQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	m.mu.Lock()
	m.quoteRequests = append(m.quoteRequests, *req)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", StatusCode: 500}
	}

	if m.OnGetQuote != nil {
		return m.OnGetQuote(ctx, req)
	}

	var quotes []Quote
	for _, q := range defaultMockQuotes() {
		if CarrierCode(q.ServiceCode) == req.CarrierCode {
			quotes = append(quotes, q)
		}
	}
	return &QuoteResponse{Quotes: quotes}, nil
}

// ServiceCalls returns how many times GetServices was called.
func (m *MockAPIClient) ServiceCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.serviceCalls
}

// QuoteRequests returns a copy of every quote request received.
func (m *MockAPIClient) QuoteRequests() []QuoteRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]QuoteRequest, len(m.quoteRequests))
	copy(out, m.quoteRequests)
	return out
}

func (m *MockAPIClient) wait(ctx context.Context) error {
	if m.SimulateLatency <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.SimulateLatency):
		return nil
	}
}

// DefaultMockServices returns the catalog served by the mock client.
func DefaultMockServices() []ServiceEntry {
	return []ServiceEntry{
		{ServiceCode: "usps_priority", ServiceLabel: "USPS Priority (1-3 Days)"},
		{ServiceCode: "usps_express", ServiceLabel: "USPS Priority Mail Express"},
		{ServiceCode: "usps_first_class", ServiceLabel: "USPS First Class"},
		{ServiceCode: "usps_ground_advantage", ServiceLabel: "USPS Ground Advantage", UnsupportedCountries: []string{"CA"}},
		{ServiceCode: "usps_return", ServiceLabel: "USPS Returns", Inbound: true},
		{ServiceCode: "fedex_ground", ServiceLabel: "FedEx Ground", SupportedCountries: []string{"US", "CA"}},
		{ServiceCode: "ups_ground", ServiceLabel: "UPS Ground"},
	}
}

func defaultMockQuotes() []Quote {
	return []Quote{
		{ServiceCode: "usps_priority", ServiceDescription: "USPS Priority", TotalAmount: decimal.RequireFromString("8.10"), Currency: "USD"},
		{ServiceCode: "usps_express", ServiceDescription: "USPS Priority Mail Express", TotalAmount: decimal.RequireFromString("27.35"), Currency: "USD"},
		{ServiceCode: "usps_first_class", ServiceDescription: "USPS First Class", TotalAmount: decimal.RequireFromString("5.00"), Currency: "USD"},
		{ServiceCode: "usps_ground_advantage", ServiceDescription: "USPS Ground Advantage", TotalAmount: decimal.RequireFromString("6.45"), Currency: "USD"},
		{ServiceCode: "fedex_ground", ServiceDescription: "FedEx Ground", TotalAmount: decimal.RequireFromString("11.20"), Currency: "USD"},
		{ServiceCode: "ups_ground", ServiceDescription: "UPS Ground", TotalAmount: decimal.RequireFromString("10.75"), Currency: "USD"},
	}
}

var _ APIClient = (*MockAPIClient)(nil)
