package xps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production XPS Ship REST API.
const DefaultBaseURL = "https://xpsshipper.com/restapi/v1"

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	customerID string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL    string
	CustomerID string
	APIKey     string
	Timeout    time.Duration
	// RequestsPerSecond throttles calls to the provider; 0 disables throttling.
	RequestsPerSecond float64
	Burst             int
	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &HTTPAPIClient{
		baseURL:    baseURL,
		customerID: cfg.CustomerID,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// GetServices fetches the service catalog.
// GET /customers/{customer_id}/services
func (c *HTTPAPIClient) GetServices(ctx context.Context) (*ServicesResponse, error) {
	var result ServicesResponse
	if err := c.do(ctx, http.MethodGet, "/services", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetQuote fetches rate quotes for the request's carrier.
// POST /customers/{customer_id}/quote
func (c *HTTPAPIClient) GetQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	var result QuoteResponse
	if err := c.do(ctx, http.MethodPost, "/quote", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do performs an authenticated call and decodes a 2xx JSON body into out.
func (c *HTTPAPIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", strings.TrimPrefix(path, "/"), err)
	}
	return nil
}

// doRequest performs an HTTP request with proper headers and authentication.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	endpoint := c.baseURL + "/customers/" + url.PathEscape(c.customerID) + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "RSIS "+c.apiKey) // XPS uses the RSIS auth scheme
	req.Header.Set("User-Agent", "xpsrate/1.0")

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	// Try to parse as a simple error message
	var simpleErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &simpleErr); err == nil {
		msg := simpleErr.Error
		if msg == "" {
			msg = simpleErr.Message
		}
		if msg != "" {
			return &APIError{
				Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
				Message:    msg,
				StatusCode: resp.StatusCode,
			}
		}
	}

	return &APIError{
		Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message:    strings.TrimSpace(string(body)),
		StatusCode: resp.StatusCode,
	}
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
