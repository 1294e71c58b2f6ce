// Package sync reconciles normalized commerce entities into an Odoo-style CRM
// with idempotent natural-key upserts. Customers and products must be synced
// before orders; order lines are replaced wholesale on every pass.
package sync

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/phc/analytics-backend/internal/domain/ingest"
	"github.com/phc/analytics-backend/internal/domain/shared"
)

// CRM record models and the custom attributes carrying the source natural key.
// The strong-key fields exist on the target as pre-provisioned custom fields;
// they often cannot be set atomically at creation, hence the create-then-tag
// two-step below.
const (
	modelPartner         = "res.partner"
	modelProductTemplate = "product.template"
	modelSaleOrder       = "sale.order"
	modelSaleOrderLine   = "sale.order.line"

	fieldCustomerKey = "x_prestashop_customer_id"
	fieldProductKey  = "x_prestashop_product_id"
	fieldOrderKey    = "x_prestashop_order_id"
)

// CRMClient is the minimal record-level surface of the target system:
// search by filter, create, update and delete against named models. Each
// record has an internal numeric id assigned by the target.
type CRMClient interface {
	SearchRead(ctx context.Context, model string, domain [][]any, fields []string, limit int) ([]map[string]any, error)
	Create(ctx context.Context, model string, values map[string]any) (int, error)
	Write(ctx context.Context, model string, ids []int, values map[string]any) error
	Unlink(ctx context.Context, model string, ids []int) error
}

// EntityResult counts the outcome of one entity upsert pass.
type EntityResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// OrderResult additionally tracks the full line replacement.
type OrderResult struct {
	OrdersCreated int `json:"orders_created"`
	OrdersUpdated int `json:"orders_updated"`
	LinesDeleted  int `json:"lines_deleted"`
	LinesCreated  int `json:"lines_created"`
}

// Result summarizes one full sync pass.
type Result struct {
	Customers EntityResult `json:"customers"`
	Products  EntityResult `json:"products"`
	Orders    OrderResult  `json:"orders"`
}

// Service performs the CRM reconciliation. Single-threaded: one entity batch
// at a time, in dependency order.
type Service struct {
	crm    CRMClient
	logger *zap.Logger
}

// NewService creates a sync Service.
func NewService(crm CRMClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{crm: crm, logger: logger}
}

// lookup is one step of the tiered key-resolution ladder. Steps run in order;
// the first match wins. A match found through a secondary key gets the strong
// key written back (self-healing linkage).
type lookup struct {
	name         string
	find         func(ctx context.Context) (int, bool, error)
	backfillsKey bool
}

// resolve walks the ladder and reports the matched record id, whether a match
// was found, and whether the strong key must be backfilled onto it.
func (s *Service) resolve(ctx context.Context, steps []lookup) (int, bool, bool, error) {
	for _, step := range steps {
		id, found, err := step.find(ctx)
		if err != nil {
			return 0, false, false, fmt.Errorf("lookup %s: %w", step.name, err)
		}
		if found {
			return id, true, step.backfillsKey, nil
		}
	}
	return 0, false, false, nil
}

func eq(field string, value any) []any {
	return []any{field, "=", value}
}

// searchOne returns the first record matching the domain, if any.
func (s *Service) searchOne(ctx context.Context, model string, domain [][]any, fields []string) (map[string]any, bool, error) {
	rows, err := s.crm.SearchRead(ctx, model, domain, fields, 1)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

func (s *Service) findByKey(ctx context.Context, model, field string, value any) (int, bool, error) {
	row, found, err := s.searchOne(ctx, model, [][]any{eq(field, value)}, []string{"id"})
	if err != nil || !found {
		return 0, found, err
	}
	return recordID(row), true, nil
}

// Run executes one full reconciliation pass in dependency order.
func (s *Service) Run(ctx context.Context, customers []ingest.Customer, products []ingest.Product, orders []ingest.Order, lines []ingest.OrderLine) (*Result, error) {
	result := &Result{}

	var err error
	if result.Customers, err = s.UpsertCustomers(ctx, customers); err != nil {
		return nil, fmt.Errorf("sync customers: %w", err)
	}
	if result.Products, err = s.UpsertProducts(ctx, products); err != nil {
		return nil, fmt.Errorf("sync products: %w", err)
	}
	if result.Orders, err = s.UpsertOrders(ctx, orders, lines); err != nil {
		return nil, fmt.Errorf("sync orders: %w", err)
	}

	s.logger.Info("sync pass finished",
		zap.Int("customers_created", result.Customers.Created),
		zap.Int("customers_updated", result.Customers.Updated),
		zap.Int("products_created", result.Products.Created),
		zap.Int("products_updated", result.Products.Updated),
		zap.Int("orders_created", result.Orders.OrdersCreated),
		zap.Int("orders_updated", result.Orders.OrdersUpdated),
		zap.Int("lines_deleted", result.Orders.LinesDeleted),
		zap.Int("lines_created", result.Orders.LinesCreated),
	)
	return result, nil
}

// UpsertCustomers reconciles customers into partner records. Strong key first,
// then email; creation tags the new record with the strong key afterwards.
func (s *Service) UpsertCustomers(ctx context.Context, customers []ingest.Customer) (EntityResult, error) {
	var result EntityResult

	for _, c := range customers {
		psID := c.PrestashopCustomerID
		email := strings.ToLower(strings.TrimSpace(c.Email))
		name := partnerName(c)
		values := map[string]any{"name": name, "email": email}

		steps := []lookup{
			{
				name: "partner strong key",
				find: func(ctx context.Context) (int, bool, error) {
					return s.findByKey(ctx, modelPartner, fieldCustomerKey, psID)
				},
			},
			{
				name:         "partner email",
				backfillsKey: true,
				find: func(ctx context.Context) (int, bool, error) {
					if email == "" {
						return 0, false, nil
					}
					return s.findByKey(ctx, modelPartner, "email", email)
				},
			},
		}

		id, found, backfill, err := s.resolve(ctx, steps)
		if err != nil {
			return result, err
		}

		if found {
			if backfill {
				values[fieldCustomerKey] = psID
			}
			if err := s.crm.Write(ctx, modelPartner, []int{id}, values); err != nil {
				return result, fmt.Errorf("update partner %d: %w", id, err)
			}
			result.Updated++
			continue
		}

		id, err = s.crm.Create(ctx, modelPartner, values)
		if err != nil {
			return result, fmt.Errorf("create partner: %w", err)
		}
		if err := s.crm.Write(ctx, modelPartner, []int{id}, map[string]any{fieldCustomerKey: psID}); err != nil {
			return result, fmt.Errorf("tag partner %d: %w", id, err)
		}
		result.Created++
	}

	return result, nil
}

// UpsertProducts reconciles products into product templates. Strong key first,
// then SKU (default_code).
func (s *Service) UpsertProducts(ctx context.Context, products []ingest.Product) (EntityResult, error) {
	var result EntityResult

	for _, p := range products {
		psID := p.PrestashopProductID
		sku := strings.TrimSpace(p.SKU)
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = fmt.Sprintf("Product %d", psID)
		}
		price := 0.0
		if p.Price != nil {
			price = *p.Price
		}
		values := map[string]any{"name": name, "default_code": sku, "list_price": price}

		steps := []lookup{
			{
				name: "product strong key",
				find: func(ctx context.Context) (int, bool, error) {
					return s.findByKey(ctx, modelProductTemplate, fieldProductKey, psID)
				},
			},
			{
				name:         "product sku",
				backfillsKey: true,
				find: func(ctx context.Context) (int, bool, error) {
					if sku == "" {
						return 0, false, nil
					}
					return s.findByKey(ctx, modelProductTemplate, "default_code", sku)
				},
			},
		}

		id, found, backfill, err := s.resolve(ctx, steps)
		if err != nil {
			return result, err
		}

		if found {
			if backfill {
				values[fieldProductKey] = psID
			}
			if err := s.crm.Write(ctx, modelProductTemplate, []int{id}, values); err != nil {
				return result, fmt.Errorf("update product %d: %w", id, err)
			}
			result.Updated++
			continue
		}

		id, err = s.crm.Create(ctx, modelProductTemplate, values)
		if err != nil {
			return result, fmt.Errorf("create product: %w", err)
		}
		if err := s.crm.Write(ctx, modelProductTemplate, []int{id}, map[string]any{fieldProductKey: psID}); err != nil {
			return result, fmt.Errorf("tag product %d: %w", id, err)
		}
		result.Created++
	}

	return result, nil
}

// UpsertOrders reconciles order headers and replaces their lines wholesale.
// The parent partner must already be synced: an order whose customer has no
// strong-key match is a hard ordering violation, not skippable.
func (s *Service) UpsertOrders(ctx context.Context, orders []ingest.Order, lines []ingest.OrderLine) (OrderResult, error) {
	var result OrderResult

	byOrder := make(map[int][]ingest.OrderLine, len(orders))
	for _, line := range lines {
		byOrder[line.PrestashopOrderID] = append(byOrder[line.PrestashopOrderID], line)
	}

	for _, o := range orders {
		partnerID, found, err := s.findByKey(ctx, modelPartner, fieldCustomerKey, o.PrestashopCustomerID)
		if err != nil {
			return result, err
		}
		if !found {
			return result, fmt.Errorf("%w: order %d references customer %d not present in the target",
				shared.ErrReferentialViolation, o.PrestashopOrderID, o.PrestashopCustomerID)
		}

		soID, found, err := s.findByKey(ctx, modelSaleOrder, fieldOrderKey, o.PrestashopOrderID)
		if err != nil {
			return result, err
		}
		if found {
			result.OrdersUpdated++
		} else {
			soID, err = s.crm.Create(ctx, modelSaleOrder, map[string]any{"partner_id": partnerID})
			if err != nil {
				return result, fmt.Errorf("create order: %w", err)
			}
			if err := s.crm.Write(ctx, modelSaleOrder, []int{soID}, map[string]any{fieldOrderKey: o.PrestashopOrderID}); err != nil {
				return result, fmt.Errorf("tag order %d: %w", soID, err)
			}
			result.OrdersCreated++
		}

		deleted, created, err := s.replaceOrderLines(ctx, soID, byOrder[o.PrestashopOrderID])
		if err != nil {
			return result, fmt.Errorf("replace lines of order %d: %w", o.PrestashopOrderID, err)
		}
		result.LinesDeleted += deleted
		result.LinesCreated += created
	}

	return result, nil
}

// replaceOrderLines deletes every existing child line and recreates them from
// the current payload. Replay-safe, but not safe under concurrent writers.
func (s *Service) replaceOrderLines(ctx context.Context, soID int, lines []ingest.OrderLine) (int, int, error) {
	row, found, err := s.searchOne(ctx, modelSaleOrder, [][]any{eq("id", soID)}, []string{"id", "order_line"})
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return 0, 0, fmt.Errorf("order %d vanished between lookup and line replacement", soID)
	}

	existing := idList(row["order_line"])
	if len(existing) > 0 {
		if err := s.crm.Unlink(ctx, modelSaleOrderLine, existing); err != nil {
			return 0, 0, fmt.Errorf("unlink lines: %w", err)
		}
	}

	created := 0
	for _, line := range lines {
		productID, err := s.productVariantID(ctx, line.PrestashopProductID)
		if err != nil {
			return len(existing), created, err
		}
		unitPrice := 0.0
		if line.UnitPrice != nil {
			unitPrice = *line.UnitPrice
		}
		_, err = s.crm.Create(ctx, modelSaleOrderLine, map[string]any{
			"order_id":        soID,
			"product_id":      productID,
			"product_uom_qty": line.Quantity,
			"price_unit":      unitPrice,
		})
		if err != nil {
			return len(existing), created, fmt.Errorf("create line: %w", err)
		}
		created++
	}

	return len(existing), created, nil
}

// productVariantID resolves the sellable variant behind a source product id.
// Sale order lines reference the variant, not the template.
func (s *Service) productVariantID(ctx context.Context, psProductID int) (int, error) {
	row, found, err := s.searchOne(ctx, modelProductTemplate,
		[][]any{eq(fieldProductKey, psProductID)},
		[]string{"id", "product_variant_id"})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: no product in the target for source product %d",
			shared.ErrReferentialViolation, psProductID)
	}

	variant := idList(row["product_variant_id"])
	if len(variant) == 0 {
		return 0, fmt.Errorf("product template %d has no variant", recordID(row))
	}
	return variant[0], nil
}

func partnerName(c ingest.Customer) string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name != "" {
		return name
	}
	if c.Email != "" {
		return c.Email
	}
	return "Unknown"
}

// recordID reads the internal id of a search result. JSON-RPC decodes numbers
// as float64; the in-process fake hands back ints.
func recordID(row map[string]any) int {
	switch v := row["id"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// idList coerces a relational field value. Many2one fields come back as
// [id, display_name]; one2many as a plain id list; absent fields as false.
func idList(value any) []int {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	ids := make([]int, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case int:
			ids = append(ids, v)
		case int64:
			ids = append(ids, int(v))
		case float64:
			ids = append(ids, int(v))
		}
	}
	return ids
}
