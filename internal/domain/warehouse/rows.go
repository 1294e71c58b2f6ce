// Package warehouse holds the gold-layer star schema: dimension and fact row
// types, the builders that produce them from normalized entities, and the
// quality checks that gate publishing.
package warehouse

// Row is a generic table row used by the quality checks, which operate on
// column names rather than concrete fact types.
type Row = map[string]any

// DimCustomer is one row per distinct customer. The surrogate key equals the
// natural key; there is no key-management indirection and no SCD versioning,
// dimensions are full-snapshot rebuilds on every run.
type DimCustomer struct {
	CustomerKey          int    `json:"customer_key"`
	PrestashopCustomerID int    `json:"prestashop_customer_id"`
	Email                string `json:"email"`
	FullName             string `json:"full_name"`
	Active               bool   `json:"active"`
}

// DimProduct is one row per distinct product.
type DimProduct struct {
	ProductKey          int      `json:"product_key"`
	PrestashopProductID int      `json:"prestashop_product_id"`
	SKU                 string   `json:"sku"`
	Name                string   `json:"name"`
	Active              bool     `json:"active"`
	Price               *float64 `json:"price"`
}

// DimDate is one row per calendar day.
// Weekday follows ISO convention: 0=Monday .. 6=Sunday.
type DimDate struct {
	Date      string `json:"date"` // YYYY-MM-DD
	DateKey   int    `json:"date_key"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Day       int    `json:"day"`
	Week      int    `json:"week"` // ISO week number
	Quarter   int    `json:"quarter"`
	YearMonth string `json:"year_month"` // YYYY-MM
	Weekday   int    `json:"weekday"`
	IsWeekend bool   `json:"is_weekend"`
}

// DimClient is one row per distinct billing client (document source).
type DimClient struct {
	ClientID   int    `json:"client_id"`
	ClientName string `json:"client_name"`
}

// FactOrder is the fact_orders grain: one row per order id.
type FactOrder struct {
	PrestashopOrderID    int     `json:"prestashop_order_id"`
	PrestashopCustomerID int     `json:"prestashop_customer_id"`
	Status               string  `json:"status"`
	TotalPaid            float64 `json:"total_paid"`
	OrderDateKey         int     `json:"order_date_key"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

// FactOrderLine is the fact_order_lines grain: one row per (order id, line).
// Foreign keys must resolve against dim_customer and dim_product.
type FactOrderLine struct {
	PrestashopOrderID    int      `json:"prestashop_order_id"`
	PrestashopProductID  int      `json:"prestashop_product_id"`
	PrestashopCustomerID int      `json:"prestashop_customer_id"`
	OrderDateKey         int      `json:"order_date_key"`
	Quantity             float64  `json:"quantity"`
	UnitPrice            *float64 `json:"unit_price"`
	LineTotal            *float64 `json:"line_total"`
}

// FactDocument is the fact_documents grain: one row per document id.
type FactDocument struct {
	DocID     int     `json:"doc_id"`
	DocDate   string  `json:"doc_date"` // YYYY-MM-DD
	YearMonth string  `json:"year_month"`
	ClientID  int     `json:"client_id"`
	DocType   string  `json:"doc_type"`
	Total     float64 `json:"total"`
}

// Row flattens the fact for the generic quality checks. Ids are 1-based in
// the source system, so a zero id means the value never arrived and is
// reported as null.
func (f FactDocument) Row() Row {
	row := Row{
		"doc_id":     nil,
		"doc_date":   nil,
		"year_month": f.YearMonth,
		"client_id":  nil,
		"doc_type":   f.DocType,
		"total":      f.Total,
	}
	if f.DocID != 0 {
		row["doc_id"] = f.DocID
	}
	if f.DocDate != "" {
		row["doc_date"] = f.DocDate
	}
	if f.ClientID != 0 {
		row["client_id"] = f.ClientID
	}
	return row
}

// SalesByProduct is the serving-layer rollup: one row per product key,
// recomputed fully each run from current facts and dimensions.
type SalesByProduct struct {
	ProductKey  int     `json:"product_key"`
	ProductName string  `json:"product_name"`
	UnitsSold   float64 `json:"units_sold"`
	Revenue     float64 `json:"revenue"`
}
