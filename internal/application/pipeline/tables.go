package pipeline

import (
	"strconv"

	"github.com/phc/analytics-backend/internal/domain/warehouse"
)

// Table is a flattened gold table ready for the tabular file sink.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	// PartitionBy names a column to partition the output by (data-lake style
	// directory layout). Empty means a single unpartitioned file.
	PartitionBy string
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func dimCustomerTable(rows []warehouse.DimCustomer) Table {
	t := Table{
		Name:    "dim_customer",
		Columns: []string{"customer_key", "prestashop_customer_id", "email", "full_name", "active"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(r.CustomerKey), strconv.Itoa(r.PrestashopCustomerID),
			r.Email, r.FullName, strconv.FormatBool(r.Active),
		})
	}
	return t
}

func dimProductTable(rows []warehouse.DimProduct) Table {
	t := Table{
		Name:    "dim_product",
		Columns: []string{"product_key", "prestashop_product_id", "sku", "name", "active", "price"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(r.ProductKey), strconv.Itoa(r.PrestashopProductID),
			r.SKU, r.Name, strconv.FormatBool(r.Active), formatFloatPtr(r.Price),
		})
	}
	return t
}

func dimDateTable(rows []warehouse.DimDate) Table {
	t := Table{
		Name: "dim_date",
		Columns: []string{
			"date", "date_key", "year", "month", "month_name", "day",
			"week", "quarter", "year_month", "weekday", "is_weekend",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Date, strconv.Itoa(r.DateKey), strconv.Itoa(r.Year), strconv.Itoa(r.Month),
			r.MonthName, strconv.Itoa(r.Day), strconv.Itoa(r.Week), strconv.Itoa(r.Quarter),
			r.YearMonth, strconv.Itoa(r.Weekday), strconv.FormatBool(r.IsWeekend),
		})
	}
	return t
}

func dimClientTable(rows []warehouse.DimClient) Table {
	t := Table{Name: "dim_clients", Columns: []string{"client_id", "client_name"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{strconv.Itoa(r.ClientID), r.ClientName})
	}
	return t
}

func factOrdersTable(rows []warehouse.FactOrder) Table {
	t := Table{
		Name: "fact_orders",
		Columns: []string{
			"prestashop_order_id", "prestashop_customer_id", "status",
			"total_paid", "order_date_key", "created_at", "updated_at",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(r.PrestashopOrderID), strconv.Itoa(r.PrestashopCustomerID), r.Status,
			formatFloat(r.TotalPaid), strconv.Itoa(r.OrderDateKey), r.CreatedAt, r.UpdatedAt,
		})
	}
	return t
}

func factOrderLinesTable(rows []warehouse.FactOrderLine) Table {
	t := Table{
		Name: "fact_order_lines",
		Columns: []string{
			"prestashop_order_id", "prestashop_product_id", "prestashop_customer_id",
			"order_date_key", "quantity", "unit_price", "line_total",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(r.PrestashopOrderID), strconv.Itoa(r.PrestashopProductID),
			strconv.Itoa(r.PrestashopCustomerID), strconv.Itoa(r.OrderDateKey),
			formatFloat(r.Quantity), formatFloatPtr(r.UnitPrice), formatFloatPtr(r.LineTotal),
		})
	}
	return t
}

func factDocumentsTable(rows []warehouse.FactDocument, partitioned bool) Table {
	t := Table{
		Name:    "fact_documents",
		Columns: []string{"doc_id", "doc_date", "year_month", "client_id", "doc_type", "total"},
	}
	if partitioned {
		t.PartitionBy = "year_month"
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(r.DocID), r.DocDate, r.YearMonth,
			strconv.Itoa(r.ClientID), r.DocType, formatFloat(r.Total),
		})
	}
	return t
}

func salesByProductTable(rows []warehouse.SalesByProduct) Table {
	t := Table{
		Name:    "agg_sales_by_product",
		Columns: []string{"product_key", "product_name", "units_sold", "revenue"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(r.ProductKey), r.ProductName,
			formatFloat(r.UnitsSold), formatFloat(r.Revenue),
		})
	}
	return t
}
