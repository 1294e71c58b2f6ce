package odoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phc/analytics-backend/internal/domain/shared"
	"github.com/phc/analytics-backend/internal/infrastructure/config"
)

type rpcCall struct {
	Service string
	Method  string
	Args    []any
}

// newRPCServer fakes the Odoo /jsonrpc endpoint. Each incoming call is
// recorded and answered from the results queue in order.
func newRPCServer(t *testing.T, results ...any) (*Client, *[]rpcCall) {
	calls := &[]rpcCall{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/jsonrpc", r.URL.Path)

		var req struct {
			Params struct {
				Service string `json:"service"`
				Method  string `json:"method"`
				Args    []any  `json:"args"`
			} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*calls = append(*calls, rpcCall{Service: req.Params.Service, Method: req.Params.Method, Args: req.Params.Args})

		var result any
		if len(results) > 0 {
			result = results[0]
			results = results[1:]
		}
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": result})
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(config.OdooConfig{
		URL:      server.URL,
		DB:       "phc",
		Login:    "etl@example.com",
		Password: "secret",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	return client, calls
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(config.OdooConfig{URL: "ftp://odoo", DB: "phc", Login: "u", Password: "p"})
	assert.Error(t, err)

	_, err = NewClient(config.OdooConfig{URL: "http://odoo:8069", Login: "u", Password: "p"})
	assert.Error(t, err)
}

func TestClient_SearchRead(t *testing.T) {
	client, calls := newRPCServer(t,
		7, // authenticate -> uid
		[]map[string]any{{"id": 42, "email": "ana@example.com"}},
	)

	records, err := client.SearchRead(context.Background(), "res.partner",
		[][]any{{"email", "=", "ana@example.com"}}, []string{"id", "email"}, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.EqualValues(t, 42, records[0]["id"])

	require.Len(t, *calls, 2)
	assert.Equal(t, "common", (*calls)[0].Service)
	assert.Equal(t, "authenticate", (*calls)[0].Method)
	assert.Equal(t, "object", (*calls)[1].Service)
	assert.Equal(t, "execute_kw", (*calls)[1].Method)
	// execute_kw args: db, uid, password, model, method, args, kwargs
	args := (*calls)[1].Args
	require.Len(t, args, 7)
	assert.Equal(t, "phc", args[0])
	assert.EqualValues(t, 7, args[1])
	assert.Equal(t, "res.partner", args[3])
	assert.Equal(t, "search_read", args[4])
}

func TestClient_AuthenticateOnce(t *testing.T) {
	client, calls := newRPCServer(t, 7, 101, true)

	id, err := client.Create(context.Background(), "res.partner", map[string]any{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, 101, id)

	err = client.Write(context.Background(), "res.partner", []int{101}, map[string]any{"name": "Ana Silva"})
	require.NoError(t, err)

	// one authenticate followed by two execute_kw calls
	require.Len(t, *calls, 3)
	assert.Equal(t, "authenticate", (*calls)[0].Method)
	assert.Equal(t, "execute_kw", (*calls)[1].Method)
	assert.Equal(t, "execute_kw", (*calls)[2].Method)
}

func TestClient_RejectedLogin(t *testing.T) {
	client, _ := newRPCServer(t, false)

	_, err := client.Create(context.Background(), "res.partner", map[string]any{"name": "Ana"})
	assert.ErrorContains(t, err, "authentication rejected")
}

func TestClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"error": map[string]any{
				"code":    200,
				"message": "Odoo Server Error",
				"data":    map[string]any{"message": "Invalid field on res.partner"},
			},
		})
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(config.OdooConfig{
		URL: server.URL, DB: "phc", Login: "u", Password: "p", Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	_, err = client.SearchRead(context.Background(), "res.partner", nil, nil, 0)
	assert.ErrorContains(t, err, "Invalid field on res.partner")
}

func TestClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(config.OdooConfig{
		URL: server.URL, DB: "phc", Login: "u", Password: "p", Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	_, err = client.SearchRead(context.Background(), "res.partner", nil, nil, 0)
	assert.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
}

func TestInMemoryClient_RoundTrip(t *testing.T) {
	crm := NewInMemoryClient()
	ctx := context.Background()

	partnerID, err := crm.Create(ctx, "res.partner", map[string]any{"name": "Ana", "x_prestashop_customer_id": 1})
	require.NoError(t, err)

	found, err := crm.SearchRead(ctx, "res.partner", [][]any{{"x_prestashop_customer_id", "=", 1}}, nil, 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, partnerID, found[0]["id"])

	require.NoError(t, crm.Write(ctx, "res.partner", []int{partnerID}, map[string]any{"name": "Ana Silva"}))
	found, err = crm.SearchRead(ctx, "res.partner", [][]any{{"id", "=", partnerID}}, nil, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ana Silva", found[0]["name"])

	require.NoError(t, crm.Unlink(ctx, "res.partner", []int{partnerID}))
	found, err = crm.SearchRead(ctx, "res.partner", nil, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestInMemoryClient_SaleOrderLines(t *testing.T) {
	crm := NewInMemoryClient()
	ctx := context.Background()

	tplID, err := crm.Create(ctx, "product.template", map[string]any{"name": "Produto A"})
	require.NoError(t, err)

	tpl, err := crm.SearchRead(ctx, "product.template", [][]any{{"id", "=", tplID}}, nil, 1)
	require.NoError(t, err)
	require.Len(t, tpl, 1)
	assert.NotNil(t, tpl[0]["product_variant_id"])

	orderID, err := crm.Create(ctx, "sale.order", map[string]any{"partner_id": 1})
	require.NoError(t, err)
	lineID, err := crm.Create(ctx, "sale.order.line", map[string]any{"order_id": orderID, "product_id": tplID})
	require.NoError(t, err)

	orders, err := crm.SearchRead(ctx, "sale.order", [][]any{{"id", "=", orderID}}, nil, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, []any{lineID}, orders[0]["order_line"])
}
