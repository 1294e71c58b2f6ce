// Package prestashop provides the HTTP client for the PrestaShop store API,
// plus an offline mock client for development without credentials.
package prestashop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/phc/analytics-backend/internal/domain/shared"
	"github.com/phc/analytics-backend/internal/infrastructure/config"
)

// maxResponseSize is the maximum allowed response size from the store API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client talks to the PrestaShop webservice over HTTP. Responses are decoded
// JSON passed through as-is; shape handling happens in the normalizer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a PrestaShop client from configuration.
func NewClient(cfg config.PrestashopConfig) (*Client, error) {
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("prestashop: base_url must start with http:// or https://")
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// GetCustomers fetches the customers resource.
func (c *Client) GetCustomers(ctx context.Context) (any, error) {
	return c.get(ctx, "/api/customers")
}

// GetProducts fetches the products resource.
func (c *Client) GetProducts(ctx context.Context) (any, error) {
	return c.get(ctx, "/api/products")
}

// GetOrders fetches the orders resource.
func (c *Client) GetOrders(ctx context.Context) (any, error) {
	return c.get(ctx, "/api/orders")
}

func (c *Client) get(ctx context.Context, path string) (any, error) {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("prestashop: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("prestashop: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", shared.ErrUpstreamUnavailable, resp.StatusCode, path)
	}

	if len(body) == 0 {
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("prestashop: invalid JSON from %s: %w", path, err)
	}
	return decoded, nil
}
