package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phc/analytics-backend/internal/domain/shared"
)

func TestNormalizeCustomers_BareListWithStringID(t *testing.T) {
	raw := []any{
		map[string]any{
			"id":        "10",
			"email":     "JOAO@EXAMPLE.COM",
			"firstname": "Joao",
			"lastname":  "Fonseca",
			"active":    1,
		},
	}

	customers, skipped := NormalizeCustomers(raw)

	require.Len(t, customers, 1)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 10, customers[0].PrestashopCustomerID)
	assert.Equal(t, "joao@example.com", customers[0].Email)
	assert.Equal(t, "Joao", customers[0].FirstName)
	assert.Equal(t, "Fonseca", customers[0].LastName)
	assert.True(t, customers[0].Active)
}

func TestNormalizeCustomers_InputShapes(t *testing.T) {
	record := map[string]any{
		"id":    float64(7),
		"email": "a@example.com",
	}

	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"nil input", nil, 0},
		{"envelope plural", map[string]any{"customers": []any{record}}, 1},
		{"envelope singular", map[string]any{"customer": record}, 1},
		{"bare list", []any{record}, 1},
		{"bare single record", record, 1},
		{"garbage scalar", 42, 0},
		{"list with non-record noise", []any{record, "junk", 3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customers, _ := NormalizeCustomers(tt.raw)
			assert.Len(t, customers, tt.want)
		})
	}
}

func TestNormalizeCustomers_SkipsMalformedRecords(t *testing.T) {
	raw := map[string]any{"customers": []any{
		map[string]any{"email": "no-id@example.com"},
		map[string]any{"id": float64(2)}, // no email
		map[string]any{"id": "", "email": "empty-id@example.com"},
		map[string]any{"id": float64(3), "email": "ok@example.com"},
	}}

	customers, skipped := NormalizeCustomers(raw)

	require.Len(t, customers, 1)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, 3, customers[0].PrestashopCustomerID)
}

func TestNormalizeCustomers_IDAliases(t *testing.T) {
	for _, alias := range []string{"prestashop_customer_id", "customer_id", "id_customer", "ps_customer_id"} {
		raw := []any{map[string]any{alias: float64(44), "email": "x@example.com"}}
		customers, skipped := NormalizeCustomers(raw)
		require.Len(t, customers, 1, "alias %s", alias)
		assert.Equal(t, 0, skipped)
		assert.Equal(t, 44, customers[0].PrestashopCustomerID)
	}
}

func TestNormalizeCustomers_Idempotent(t *testing.T) {
	raw := map[string]any{"customers": []any{
		map[string]any{"id": float64(1), "email": "A@B.C", "date_add": "2024-01-01T10:00:00", "date_upd": "2024-01-02T10:00:00"},
	}}

	first, firstSkipped := NormalizeCustomers(raw)
	second, secondSkipped := NormalizeCustomers(raw)

	assert.Equal(t, first, second)
	assert.Equal(t, firstSkipped, secondSkipped)
	assert.Equal(t, "2024-01-01T10:00:00", first[0].CreatedAt)
	assert.Equal(t, "2024-01-02T10:00:00", first[0].UpdatedAt)
}

func TestNormalizeProducts(t *testing.T) {
	raw := map[string]any{"products": []any{
		map[string]any{
			"id":        float64(100),
			"reference": "SKU-100",
			"name":      "Produto A",
			"active":    true,
			"price":     19.99,
			"date_add":  "2024-01-05T11:00:00",
			"date_upd":  "2024-01-06T11:00:00",
		},
	}}

	products, err := NormalizeProducts(raw)

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 100, products[0].PrestashopProductID)
	assert.Equal(t, "SKU-100", products[0].SKU)
	assert.Equal(t, "Produto A", products[0].Name)
	require.NotNil(t, products[0].Price)
	assert.InDelta(t, 19.99, *products[0].Price, 0.0001)
}

func TestNormalizeProducts_ContractViolations(t *testing.T) {
	tests := []struct {
		name      string
		raw       any
		wantField string
	}{
		{"missing envelope key", map[string]any{"things": []any{}}, "products"},
		{"product without id", map[string]any{"products": []any{map[string]any{"name": "X"}}}, "id"},
		{"product without name", map[string]any{"products": []any{map[string]any{"id": float64(1)}}}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := NormalizeProducts(tt.raw)
			require.Error(t, err)
			assert.Nil(t, products)
			assert.ErrorIs(t, err, shared.ErrDataValidation)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestNormalizeProducts_NilPriceTolerated(t *testing.T) {
	raw := map[string]any{"products": []any{
		map[string]any{"id": float64(5), "name": "No price"},
	}}

	products, err := NormalizeProducts(raw)

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Nil(t, products[0].Price)
}

func TestNormalizeOrders(t *testing.T) {
	raw := map[string]any{"orders": []any{
		map[string]any{
			"id":            float64(5000),
			"id_customer":   float64(1),
			"current_state": "paid",
			"total_paid":    49.98,
			"date_add":      "2024-02-10T16:00:00",
			"date_upd":      "2024-02-10T16:05:00",
		},
	}}

	orders, err := NormalizeOrders(raw)

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 5000, orders[0].PrestashopOrderID)
	assert.Equal(t, 1, orders[0].PrestashopCustomerID)
	assert.Equal(t, "paid", orders[0].Status)
	assert.InDelta(t, 49.98, orders[0].TotalPaid, 0.0001)
	assert.Equal(t, "2024-02-10T16:00:00", orders[0].CreatedAt)
}

func TestNormalizeOrders_ContractViolations(t *testing.T) {
	tests := []struct {
		name      string
		order     map[string]any
		wantField string
	}{
		{"missing id", map[string]any{"id_customer": float64(1), "date_add": "2024-01-01T00:00:00"}, "id"},
		{"missing customer", map[string]any{"id": float64(1), "date_add": "2024-01-01T00:00:00"}, "id_customer"},
		{"missing date_add", map[string]any{"id": float64(1), "id_customer": float64(2)}, "date_add"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := NormalizeOrders(map[string]any{"orders": []any{tt.order}})
			require.Error(t, err)
			assert.Nil(t, orders)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestNormalizeOrderLines_ComputesLineTotal(t *testing.T) {
	raw := map[string]any{"orders": []any{
		map[string]any{
			"id": float64(5000),
			"associations": map[string]any{"order_rows": []any{
				map[string]any{"product_id": float64(100), "product_quantity": float64(2), "unit_price_tax_excl": 19.99},
				map[string]any{"product_id": float64(200), "product_quantity": float64(1)},
			}},
		},
	}}

	lines, err := NormalizeOrderLines(raw)

	require.NoError(t, err)
	require.Len(t, lines, 2)

	require.NotNil(t, lines[0].LineTotal)
	assert.InDelta(t, 39.98, *lines[0].LineTotal, 0.0001)
	assert.Equal(t, 5000, lines[0].PrestashopOrderID)

	// Missing price tolerated: line total stays nil, no error.
	assert.Nil(t, lines[1].UnitPrice)
	assert.Nil(t, lines[1].LineTotal)
}

func TestNormalizeOrderLines_MockFeedShape(t *testing.T) {
	raw := map[string]any{"orders": []any{
		map[string]any{
			"prestashop_order_id": float64(5001),
			"lines": []any{
				map[string]any{"prestashop_product_id": float64(100), "quantity": float64(1), "unit_price": 19.99},
			},
		},
	}}

	lines, err := NormalizeOrderLines(raw)

	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5001, lines[0].PrestashopOrderID)
	assert.Equal(t, 100, lines[0].PrestashopProductID)
}

func TestNormalizeOrderLines_ContractViolations(t *testing.T) {
	tests := []struct {
		name      string
		row       map[string]any
		wantField string
	}{
		{"missing product id", map[string]any{"product_quantity": float64(1)}, "product_id"},
		{"missing quantity", map[string]any{"product_id": float64(100)}, "product_quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{"orders": []any{
				map[string]any{
					"id":           float64(1),
					"associations": map[string]any{"order_rows": []any{tt.row}},
				},
			}}

			lines, err := NormalizeOrderLines(raw)
			require.Error(t, err)
			assert.Nil(t, lines)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}
