package ingest

// Customer is a normalized PrestaShop customer (silver-layer contract).
// Timestamps are carried as opaque ISO-8601 strings; no timezone or locale
// conversion happens at this layer.
type Customer struct {
	PrestashopCustomerID int    `json:"prestashop_customer_id"`
	Email                string `json:"email"`
	FirstName            string `json:"firstname"`
	LastName             string `json:"lastname"`
	Active               bool   `json:"active"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

// Product is a normalized PrestaShop product.
type Product struct {
	PrestashopProductID int      `json:"prestashop_product_id"`
	SKU                 string   `json:"sku"`
	Name                string   `json:"name"`
	Active              bool     `json:"active"`
	Price               *float64 `json:"price"`
	CreatedAt           string   `json:"created_at"`
	UpdatedAt           string   `json:"updated_at"`
}

// Order is a normalized PrestaShop order header.
type Order struct {
	PrestashopOrderID    int     `json:"prestashop_order_id"`
	PrestashopCustomerID int     `json:"prestashop_customer_id"`
	Status               string  `json:"status"`
	TotalPaid            float64 `json:"total_paid"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

// OrderLine is a normalized PrestaShop order line.
// LineTotal is quantity * unit price when the price is known, nil otherwise;
// a missing price is tolerated, a missing quantity or product id is not.
type OrderLine struct {
	PrestashopOrderID   int      `json:"prestashop_order_id"`
	PrestashopProductID int      `json:"prestashop_product_id"`
	Quantity            float64  `json:"quantity"`
	UnitPrice           *float64 `json:"unit_price"`
	LineTotal           *float64 `json:"line_total"`
}

// Document is a normalized billing document from the internal system
// (invoice, receipt or delivery note). Feeds fact_documents.
type Document struct {
	DocID      int     `json:"doc_id"`
	DocDate    string  `json:"doc_date"` // ISO date, YYYY-MM-DD
	ClientID   int     `json:"client_id"`
	ClientName string  `json:"client_name"`
	DocType    string  `json:"doc_type"`
	Total      float64 `json:"total"`
}
