package prestashop

import "context"

// MockClient serves a small fixed dataset shaped like the real webservice
// payloads. It backs local development and demos when no store credentials
// are configured.
type MockClient struct{}

// NewMockClient creates the offline client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// GetCustomers returns the fixture customers envelope.
func (c *MockClient) GetCustomers(ctx context.Context) (any, error) {
	return map[string]any{
		"customers": []any{
			map[string]any{
				"prestashop_customer_id": 1,
				"email":                  "alice@example.com",
				"firstname":              "Alice",
				"lastname":               "Silva",
				"active":                 true,
				"created_at":             "2024-01-10T10:15:00",
				"updated_at":             "2024-01-15T09:00:00",
			},
			map[string]any{
				"prestashop_customer_id": 2,
				"email":                  "bob@example.com",
				"firstname":              "Bob",
				"lastname":               "Santos",
				"active":                 true,
				"created_at":             "2024-02-01T14:20:00",
				"updated_at":             "2024-02-05T08:30:00",
			},
		},
	}, nil
}

// GetProducts returns the fixture products envelope.
func (c *MockClient) GetProducts(ctx context.Context) (any, error) {
	return map[string]any{
		"products": []any{
			map[string]any{
				"prestashop_product_id": 100,
				"sku":                   "SKU-100",
				"name":                  "Produto A",
				"active":                true,
				"price":                 19.99,
				"currency":              "EUR",
				"created_at":            "2024-01-05T11:00:00",
				"updated_at":            "2024-01-06T11:00:00",
			},
			map[string]any{
				"prestashop_product_id": 200,
				"sku":                   "SKU-200",
				"name":                  "Produto B",
				"active":                true,
				"price":                 29.99,
				"currency":              "EUR",
				"created_at":            "2024-01-07T12:00:00",
				"updated_at":            "2024-01-08T12:00:00",
			},
		},
	}, nil
}

// GetOrders returns the fixture orders envelope, lines included.
func (c *MockClient) GetOrders(ctx context.Context) (any, error) {
	return map[string]any{
		"orders": []any{
			map[string]any{
				"prestashop_order_id":    5000,
				"prestashop_customer_id": 1,
				"status":                 "paid",
				"total_paid":             49.98,
				"currency":               "EUR",
				"created_at":             "2024-02-10T16:00:00",
				"updated_at":             "2024-02-10T16:05:00",
				"lines": []any{
					map[string]any{
						"prestashop_product_id": 100,
						"quantity":              1,
						"unit_price":            19.99,
						"line_total":            19.99,
					},
					map[string]any{
						"prestashop_product_id": 200,
						"quantity":              1,
						"unit_price":            29.99,
						"line_total":            29.99,
					},
				},
			},
			map[string]any{
				"prestashop_order_id":    5001,
				"prestashop_customer_id": 2,
				"status":                 "paid",
				"total_paid":             19.99,
				"currency":               "EUR",
				"created_at":             "2024-02-12T09:00:00",
				"updated_at":             "2024-02-12T09:30:00",
				"lines": []any{
					map[string]any{
						"prestashop_product_id": 100,
						"quantity":              1,
						"unit_price":            19.99,
						"line_total":            19.99,
					},
				},
			},
		},
	}, nil
}
