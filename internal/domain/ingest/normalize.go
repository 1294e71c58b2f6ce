package ingest

import (
	"fmt"
	"strings"

	"github.com/phc/analytics-backend/internal/domain/shared"
)

// ValidationError reports a data-contract violation on a strict entity batch.
// It aborts normalization of the whole batch; nothing is partially emitted.
type ValidationError struct {
	Entity string
	Field  string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Entity, e.Field)
}

// Is lets callers match any contract violation via shared.ErrDataValidation.
func (e *ValidationError) Is(target error) bool {
	return target == shared.ErrDataValidation
}

func missingField(entity, field string) error {
	return &ValidationError{Entity: entity, Field: field}
}

// Natural-key alias lists, tried in order. Different source endpoints expose
// the same id under different names.
var (
	customerIDAliases = []string{"id", "prestashop_customer_id", "customer_id", "id_customer", "ps_customer_id"}
	productIDAliases  = []string{"id", "prestashop_product_id", "product_id", "id_product"}
	orderIDAliases    = []string{"id", "prestashop_order_id", "order_id", "id_order"}
	orderCustomerRefs = []string{"id_customer", "prestashop_customer_id", "customer_id"}
	createdAtAliases  = []string{"date_add", "created_at"}
	updatedAtAliases  = []string{"date_upd", "updated_at"}
)

// NormalizeCustomers is the lenient normalizer: customer feeds are noisy
// reference data, so records without a resolvable id or email are skipped
// and counted, never fatal. Calling it twice on the same input yields
// identical output.
func NormalizeCustomers(raw any) ([]Customer, int) {
	records := coerceRecords(raw, "customers", "customer", true)

	normalized := make([]Customer, 0, len(records))
	skipped := 0

	for _, rec := range records {
		idRaw, ok := fieldValue(rec, customerIDAliases...)
		if !ok {
			skipped++
			continue
		}
		id, ok := intValue(idRaw)
		if !ok {
			skipped++
			continue
		}

		emailRaw, ok := fieldValue(rec, "email")
		if !ok {
			skipped++
			continue
		}

		normalized = append(normalized, Customer{
			PrestashopCustomerID: id,
			Email:                strings.ToLower(stringValue(emailRaw)),
			FirstName:            stringValue(rec["firstname"]),
			LastName:             stringValue(rec["lastname"]),
			Active:               boolValue(rec["active"], true),
			CreatedAt:            timestampField(rec, createdAtAliases),
			UpdatedAt:            timestampField(rec, updatedAtAliases),
		})
	}

	return normalized, skipped
}

// NormalizeProducts is strict: products feed dimension tables, so a record
// missing a required field fails the whole batch.
func NormalizeProducts(raw any) ([]Product, error) {
	records, err := strictRecords(raw, "products", "product")
	if err != nil {
		return nil, err
	}

	normalized := make([]Product, 0, len(records))

	for _, rec := range records {
		idRaw, ok := fieldValue(rec, productIDAliases...)
		if !ok {
			return nil, missingField("product", "id")
		}
		id, ok := intValue(idRaw)
		if !ok {
			return nil, missingField("product", "id")
		}

		nameRaw, ok := fieldValue(rec, "name")
		if !ok {
			return nil, missingField("product", "name")
		}

		var price *float64
		if priceRaw, ok := fieldValue(rec, "price"); ok {
			if v, ok := floatValue(priceRaw); ok {
				price = &v
			}
		}

		sku := ""
		if skuRaw, ok := fieldValue(rec, "reference", "sku"); ok {
			sku = stringValue(skuRaw)
		}

		normalized = append(normalized, Product{
			PrestashopProductID: id,
			SKU:                 sku,
			Name:                stringValue(nameRaw),
			Active:              boolValue(rec["active"], true),
			Price:               price,
			CreatedAt:           timestampField(rec, createdAtAliases),
			UpdatedAt:           timestampField(rec, updatedAtAliases),
		})
	}

	return normalized, nil
}

// NormalizeOrders is strict: order headers feed fact_orders.
func NormalizeOrders(raw any) ([]Order, error) {
	records, err := strictRecords(raw, "orders", "order")
	if err != nil {
		return nil, err
	}

	normalized := make([]Order, 0, len(records))

	for _, rec := range records {
		id, ok := requiredInt(rec, orderIDAliases)
		if !ok {
			return nil, missingField("order", "id")
		}
		customerID, ok := requiredInt(rec, orderCustomerRefs)
		if !ok {
			return nil, missingField("order", "id_customer")
		}
		createdAt := timestampField(rec, createdAtAliases)
		if createdAt == "" {
			return nil, missingField("order", "date_add")
		}

		totalPaid := 0.0
		if totalRaw, ok := fieldValue(rec, "total_paid"); ok {
			if v, ok := floatValue(totalRaw); ok {
				totalPaid = v
			}
		}

		status := ""
		if statusRaw, ok := fieldValue(rec, "current_state", "status"); ok {
			status = stringValue(statusRaw)
		}

		normalized = append(normalized, Order{
			PrestashopOrderID:    id,
			PrestashopCustomerID: customerID,
			Status:               status,
			TotalPaid:            totalPaid,
			CreatedAt:            createdAt,
			UpdatedAt:            timestampField(rec, updatedAtAliases),
		})
	}

	return normalized, nil
}

// NormalizeOrderLines is strict. Lines arrive nested under their order header,
// either as associations.order_rows (live API) or as lines (mock feed).
// A missing unit price never errors; line_total simply stays nil.
func NormalizeOrderLines(raw any) ([]OrderLine, error) {
	records, err := strictRecords(raw, "orders", "order")
	if err != nil {
		return nil, err
	}

	normalized := make([]OrderLine, 0, len(records))

	for _, rec := range records {
		orderID, ok := requiredInt(rec, orderIDAliases)
		if !ok {
			return nil, missingField("order", "id")
		}

		for _, row := range lineRows(rec) {
			productRaw, ok := fieldValue(row, "product_id", "prestashop_product_id")
			if !ok {
				return nil, missingField("order line", "product_id")
			}
			productID, ok := intValue(productRaw)
			if !ok {
				return nil, missingField("order line", "product_id")
			}

			quantityRaw, ok := fieldValue(row, "product_quantity", "quantity")
			if !ok {
				return nil, missingField("order line", "product_quantity")
			}
			quantity, ok := floatValue(quantityRaw)
			if !ok {
				return nil, missingField("order line", "product_quantity")
			}

			var unitPrice, lineTotal *float64
			if priceRaw, ok := fieldValue(row, "unit_price_tax_excl", "unit_price"); ok {
				if v, ok := floatValue(priceRaw); ok {
					unitPrice = &v
					total := quantity * v
					lineTotal = &total
				}
			}

			normalized = append(normalized, OrderLine{
				PrestashopOrderID:   orderID,
				PrestashopProductID: productID,
				Quantity:            quantity,
				UnitPrice:           unitPrice,
				LineTotal:           lineTotal,
			})
		}
	}

	return normalized, nil
}

// strictRecords coerces a strict entity payload, rejecting inputs without the
// expected envelope or list shape.
func strictRecords(raw any, plural, singular string) ([]map[string]any, error) {
	switch v := raw.(type) {
	case []any, []map[string]any:
		return coerceRecords(v, plural, singular, false), nil
	case map[string]any:
		if _, ok := v[plural]; !ok {
			if _, ok := v[singular]; !ok {
				return nil, missingField(plural+" payload", plural)
			}
		}
		return coerceRecords(v, plural, singular, false), nil
	default:
		return nil, missingField(plural+" payload", plural)
	}
}

// lineRows extracts nested line rows from an order record.
func lineRows(rec map[string]any) []map[string]any {
	if assoc, ok := rec["associations"].(map[string]any); ok {
		if rows, ok := assoc["order_rows"]; ok {
			return coerceValue(rows)
		}
	}
	if rows, ok := rec["lines"]; ok {
		return coerceValue(rows)
	}
	return nil
}

func timestampField(rec map[string]any, aliases []string) string {
	if v, ok := fieldValue(rec, aliases...); ok {
		return stringValue(v)
	}
	return ""
}

func requiredInt(rec map[string]any, aliases []string) (int, bool) {
	v, ok := fieldValue(rec, aliases...)
	if !ok {
		return 0, false
	}
	return intValue(v)
}
