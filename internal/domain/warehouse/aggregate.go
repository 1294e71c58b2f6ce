package warehouse

import (
	"fmt"
	"sort"

	"github.com/phc/analytics-backend/internal/domain/shared"
)

// AggregateSalesByProduct computes the sales rollup at product grain:
// units_sold = sum(quantity), revenue = sum(line_total). A line referencing a
// product key absent from dim_product aborts the aggregation; silently
// dropping it would hide a referential break. Missing measures count as zero.
func AggregateSalesByProduct(lines []FactOrderLine, products []DimProduct) ([]SalesByProduct, error) {
	byKey := make(map[int]DimProduct, len(products))
	for _, p := range products {
		byKey[p.ProductKey] = p
	}

	agg := make(map[int]*SalesByProduct)

	for _, line := range lines {
		key := line.PrestashopProductID
		product, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("%w: product %d not found in dim_product", shared.ErrReferentialViolation, key)
		}

		row, ok := agg[key]
		if !ok {
			row = &SalesByProduct{ProductKey: key, ProductName: product.Name}
			agg[key] = row
		}

		row.UnitsSold += line.Quantity
		if line.LineTotal != nil {
			row.Revenue += *line.LineTotal
		}
	}

	keys := make([]int, 0, len(agg))
	for key := range agg {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	rows := make([]SalesByProduct, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, *agg[key])
	}
	return rows, nil
}
