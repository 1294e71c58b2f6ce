package odoo

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryClient emulates the slice of Odoo the sync pipeline touches, for
// development without a CRM instance. Supported behavior:
//
//   - equality-only domain filters
//   - product.template records expose a product_variant_id pair
//   - sale.order records expose their order_line ids
type InMemoryClient struct {
	mu      sync.Mutex
	records map[string][]map[string]any
	nextID  int
}

// NewInMemoryClient creates an empty in-memory CRM.
func NewInMemoryClient() *InMemoryClient {
	return &InMemoryClient{
		records: make(map[string][]map[string]any),
		nextID:  1,
	}
}

// SearchRead returns records matching an equality-only domain filter.
func (c *InMemoryClient) SearchRead(ctx context.Context, model string, domain [][]any, fields []string, limit int) ([]map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := make([]map[string]any, 0)
	for _, rec := range c.records[model] {
		if !matches(rec, domain) {
			continue
		}

		view := make(map[string]any, len(rec))
		for k, v := range rec {
			view[k] = v
		}
		if model == "sale.order" {
			view["order_line"] = c.lineIDs(view["id"])
		}
		matched = append(matched, view)

		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

// Create inserts one record and returns its id.
func (c *InMemoryClient) Create(ctx context.Context, model string, values map[string]any) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	rec := make(map[string]any, len(values)+2)
	for k, v := range values {
		rec[k] = v
	}
	rec["id"] = id
	if model == "product.template" {
		// Odoo materializes one variant per bare template.
		rec["product_variant_id"] = []any{id, fmt.Sprintf("variant-%d", id)}
	}

	c.records[model] = append(c.records[model], rec)
	return id, nil
}

// Write updates the given records in place.
func (c *InMemoryClient) Write(ctx context.Context, model string, ids []int, values map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range c.records[model] {
		if containsID(ids, rec["id"]) {
			for k, v := range values {
				rec[k] = v
			}
		}
	}
	return nil
}

// Unlink deletes the given records.
func (c *InMemoryClient) Unlink(ctx context.Context, model string, ids []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]map[string]any, 0, len(c.records[model]))
	for _, rec := range c.records[model] {
		if !containsID(ids, rec["id"]) {
			kept = append(kept, rec)
		}
	}
	c.records[model] = kept
	return nil
}

func (c *InMemoryClient) lineIDs(orderID any) []any {
	ids := make([]any, 0)
	for _, line := range c.records["sale.order.line"] {
		if line["order_id"] == orderID {
			ids = append(ids, line["id"])
		}
	}
	return ids
}

func matches(rec map[string]any, domain [][]any) bool {
	for _, cond := range domain {
		if len(cond) != 3 {
			return false
		}
		field, _ := cond[0].(string)
		if rec[field] != cond[2] {
			return false
		}
	}
	return true
}

func containsID(ids []int, v any) bool {
	id, ok := v.(int)
	if !ok {
		return false
	}
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
