// Package odoo provides the JSON-RPC client for the Odoo CRM, plus an
// in-memory client for offline development.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/phc/analytics-backend/internal/domain/shared"
	"github.com/phc/analytics-backend/internal/infrastructure/config"
)

// maxResponseSize is the maximum allowed response size from the CRM (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client talks to Odoo over its JSON-RPC endpoint. Authentication is lazy:
// the first model call resolves the uid and caches it for the connection
// lifetime.
type Client struct {
	url      string
	db       string
	login    string
	password string

	httpClient *http.Client

	mu  sync.Mutex
	uid int
}

// NewClient creates an Odoo client from configuration.
func NewClient(cfg config.OdooConfig) (*Client, error) {
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, fmt.Errorf("odoo: url must start with http:// or https://")
	}
	if cfg.DB == "" || cfg.Login == "" || cfg.Password == "" {
		return nil, fmt.Errorf("odoo: db, login and password are required")
	}

	return &Client{
		url:      strings.TrimRight(cfg.URL, "/"),
		db:       cfg.DB,
		login:    cfg.Login,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Data != nil {
		if msg, ok := e.Data["message"].(string); ok && msg != "" {
			return fmt.Sprintf("odoo: %s", msg)
		}
	}
	return fmt.Sprintf("odoo: %s (code %d)", e.Message, e.Code)
}

// call performs one JSON-RPC request against the given service.
func (c *Client) call(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("odoo: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/jsonrpc", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("odoo: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("odoo: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d from jsonrpc endpoint", shared.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("odoo: invalid JSON-RPC response: %w", err)
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	return decoded.Result, nil
}

// authenticate resolves and caches the uid for the configured login.
func (c *Client) authenticate(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != 0 {
		return c.uid, nil
	}

	result, err := c.call(ctx, "common", "authenticate", []any{c.db, c.login, c.password, map[string]any{}})
	if err != nil {
		return 0, err
	}

	var uid int
	if err := json.Unmarshal(result, &uid); err != nil || uid <= 0 {
		return 0, fmt.Errorf("odoo: authentication rejected for %s", c.login)
	}
	c.uid = uid
	return uid, nil
}

// executeKw runs one model method through the object service.
func (c *Client) executeKw(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	uid, err := c.authenticate(ctx)
	if err != nil {
		return err
	}

	callArgs := []any{c.db, uid, c.password, model, method, args}
	if kwargs != nil {
		callArgs = append(callArgs, kwargs)
	}

	result, err := c.call(ctx, "object", "execute_kw", callArgs)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("odoo: decode %s.%s result: %w", model, method, err)
	}
	return nil
}

// SearchRead returns records of a model matching the domain filter.
func (c *Client) SearchRead(ctx context.Context, model string, domain [][]any, fields []string, limit int) ([]map[string]any, error) {
	kwargs := map[string]any{}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	if limit > 0 {
		kwargs["limit"] = limit
	}

	var records []map[string]any
	if err := c.executeKw(ctx, model, "search_read", []any{domain}, kwargs, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Create inserts one record and returns its id.
func (c *Client) Create(ctx context.Context, model string, values map[string]any) (int, error) {
	var id int
	if err := c.executeKw(ctx, model, "create", []any{values}, nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Write updates the given records in place.
func (c *Client) Write(ctx context.Context, model string, ids []int, values map[string]any) error {
	return c.executeKw(ctx, model, "write", []any{ids, values}, nil, nil)
}

// Unlink deletes the given records.
func (c *Client) Unlink(ctx context.Context, model string, ids []int) error {
	return c.executeKw(ctx, model, "unlink", []any{ids}, nil, nil)
}
