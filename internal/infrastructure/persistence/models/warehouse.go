package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phc/analytics-backend/internal/domain/warehouse"
)

// RawExtractModel archives one raw source payload per entity per run,
// append-only. Payload is the unmodified upstream JSON.
type RawExtractModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	BatchID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Entity     string    `gorm:"type:varchar(50);not null;index"`
	Payload    string    `gorm:"type:jsonb;not null"`
	ArchivedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RawExtractModel) TableName() string {
	return "raw_extracts"
}

// WatermarkModel is the incremental-load state, one row per entity. The
// timestamp keeps the raw source string, never a reformatted value.
type WatermarkModel struct {
	EntityName  string    `gorm:"type:varchar(50);primary_key"`
	WatermarkTS string    `gorm:"type:varchar(40);not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WatermarkModel) TableName() string {
	return "etl_watermarks"
}

// ToDomain converts the persistence model to a domain Watermark
func (m *WatermarkModel) ToDomain() *warehouse.Watermark {
	return &warehouse.Watermark{EntityName: m.EntityName, WatermarkTS: m.WatermarkTS}
}

// DimCustomerModel is the persistence model for dim_customer. The surrogate
// key equals the source natural key.
type DimCustomerModel struct {
	CustomerKey          int    `gorm:"primaryKey;autoIncrement:false"`
	PrestashopCustomerID int    `gorm:"not null;index"`
	Email                string `gorm:"type:varchar(255)"`
	FullName             string `gorm:"type:varchar(200)"`
	Active               bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (DimCustomerModel) TableName() string {
	return "dim_customer"
}

// ToDomain converts the persistence model to a domain row
func (m *DimCustomerModel) ToDomain() warehouse.DimCustomer {
	return warehouse.DimCustomer{
		CustomerKey:          m.CustomerKey,
		PrestashopCustomerID: m.PrestashopCustomerID,
		Email:                m.Email,
		FullName:             m.FullName,
		Active:               m.Active,
	}
}

// FromDomain populates the persistence model from a domain row
func (m *DimCustomerModel) FromDomain(row warehouse.DimCustomer) {
	m.CustomerKey = row.CustomerKey
	m.PrestashopCustomerID = row.PrestashopCustomerID
	m.Email = row.Email
	m.FullName = row.FullName
	m.Active = row.Active
}

// DimProductModel is the persistence model for dim_product
type DimProductModel struct {
	ProductKey          int              `gorm:"primaryKey;autoIncrement:false"`
	PrestashopProductID int              `gorm:"not null;index"`
	SKU                 string           `gorm:"type:varchar(64)"`
	Name                string           `gorm:"type:varchar(200);not null"`
	Active              bool             `gorm:"not null;default:true"`
	Price               *decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (DimProductModel) TableName() string {
	return "dim_product"
}

// ToDomain converts the persistence model to a domain row
func (m *DimProductModel) ToDomain() warehouse.DimProduct {
	return warehouse.DimProduct{
		ProductKey:          m.ProductKey,
		PrestashopProductID: m.PrestashopProductID,
		SKU:                 m.SKU,
		Name:                m.Name,
		Active:              m.Active,
		Price:               decimalPtrToFloat(m.Price),
	}
}

// FromDomain populates the persistence model from a domain row
func (m *DimProductModel) FromDomain(row warehouse.DimProduct) {
	m.ProductKey = row.ProductKey
	m.PrestashopProductID = row.PrestashopProductID
	m.SKU = row.SKU
	m.Name = row.Name
	m.Active = row.Active
	m.Price = floatPtrToDecimal(row.Price)
}

// DimDateModel is the persistence model for dim_date
type DimDateModel struct {
	DateKey   int    `gorm:"primaryKey;autoIncrement:false"`
	Date      string `gorm:"type:varchar(10);not null"`
	Year      int    `gorm:"not null"`
	Month     int    `gorm:"not null"`
	MonthName string `gorm:"type:varchar(12);not null"`
	Day       int    `gorm:"not null"`
	Week      int    `gorm:"not null"`
	Quarter   int    `gorm:"not null"`
	YearMonth string `gorm:"type:varchar(7);not null;index"`
	Weekday   int    `gorm:"not null"`
	IsWeekend bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DimDateModel) TableName() string {
	return "dim_date"
}

// ToDomain converts the persistence model to a domain row
func (m *DimDateModel) ToDomain() warehouse.DimDate {
	return warehouse.DimDate{
		Date:      m.Date,
		DateKey:   m.DateKey,
		Year:      m.Year,
		Month:     m.Month,
		MonthName: m.MonthName,
		Day:       m.Day,
		Week:      m.Week,
		Quarter:   m.Quarter,
		YearMonth: m.YearMonth,
		Weekday:   m.Weekday,
		IsWeekend: m.IsWeekend,
	}
}

// FromDomain populates the persistence model from a domain row
func (m *DimDateModel) FromDomain(row warehouse.DimDate) {
	m.DateKey = row.DateKey
	m.Date = row.Date
	m.Year = row.Year
	m.Month = row.Month
	m.MonthName = row.MonthName
	m.Day = row.Day
	m.Week = row.Week
	m.Quarter = row.Quarter
	m.YearMonth = row.YearMonth
	m.Weekday = row.Weekday
	m.IsWeekend = row.IsWeekend
}

// DimClientModel is the persistence model for dim_clients
type DimClientModel struct {
	ClientID   int    `gorm:"primaryKey;autoIncrement:false"`
	ClientName string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (DimClientModel) TableName() string {
	return "dim_clients"
}

// ToDomain converts the persistence model to a domain row
func (m *DimClientModel) ToDomain() warehouse.DimClient {
	return warehouse.DimClient{ClientID: m.ClientID, ClientName: m.ClientName}
}

// FromDomain populates the persistence model from a domain row
func (m *DimClientModel) FromDomain(row warehouse.DimClient) {
	m.ClientID = row.ClientID
	m.ClientName = row.ClientName
}

// FactOrderModel is the persistence model for fact_orders. Source timestamps
// stay raw strings; dim_date joins go through order_date_key.
type FactOrderModel struct {
	PrestashopOrderID    int             `gorm:"primaryKey;autoIncrement:false"`
	PrestashopCustomerID int             `gorm:"not null;index"`
	Status               string          `gorm:"type:varchar(50)"`
	TotalPaid            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	OrderDateKey         int             `gorm:"not null;index"`
	CreatedAt            string          `gorm:"type:varchar(32);not null"`
	UpdatedAt            string          `gorm:"type:varchar(32)"`
}

// TableName returns the table name for GORM
func (FactOrderModel) TableName() string {
	return "fact_orders"
}

// ToDomain converts the persistence model to a domain row
func (m *FactOrderModel) ToDomain() warehouse.FactOrder {
	return warehouse.FactOrder{
		PrestashopOrderID:    m.PrestashopOrderID,
		PrestashopCustomerID: m.PrestashopCustomerID,
		Status:               m.Status,
		TotalPaid:            m.TotalPaid.InexactFloat64(),
		OrderDateKey:         m.OrderDateKey,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain row
func (m *FactOrderModel) FromDomain(row warehouse.FactOrder) {
	m.PrestashopOrderID = row.PrestashopOrderID
	m.PrestashopCustomerID = row.PrestashopCustomerID
	m.Status = row.Status
	m.TotalPaid = decimal.NewFromFloat(row.TotalPaid)
	m.OrderDateKey = row.OrderDateKey
	m.CreatedAt = row.CreatedAt
	m.UpdatedAt = row.UpdatedAt
}

// FactOrderLineModel is the persistence model for fact_order_lines. The
// grain is (order id, product id); both come from the source system.
type FactOrderLineModel struct {
	PrestashopOrderID    int              `gorm:"primaryKey;autoIncrement:false"`
	PrestashopProductID  int              `gorm:"primaryKey;autoIncrement:false"`
	PrestashopCustomerID int              `gorm:"not null;index"`
	OrderDateKey         int              `gorm:"not null;index"`
	Quantity             decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice            *decimal.Decimal `gorm:"type:decimal(18,4)"`
	LineTotal            *decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (FactOrderLineModel) TableName() string {
	return "fact_order_lines"
}

// ToDomain converts the persistence model to a domain row
func (m *FactOrderLineModel) ToDomain() warehouse.FactOrderLine {
	return warehouse.FactOrderLine{
		PrestashopOrderID:    m.PrestashopOrderID,
		PrestashopProductID:  m.PrestashopProductID,
		PrestashopCustomerID: m.PrestashopCustomerID,
		OrderDateKey:         m.OrderDateKey,
		Quantity:             m.Quantity.InexactFloat64(),
		UnitPrice:            decimalPtrToFloat(m.UnitPrice),
		LineTotal:            decimalPtrToFloat(m.LineTotal),
	}
}

// FromDomain populates the persistence model from a domain row
func (m *FactOrderLineModel) FromDomain(row warehouse.FactOrderLine) {
	m.PrestashopOrderID = row.PrestashopOrderID
	m.PrestashopProductID = row.PrestashopProductID
	m.PrestashopCustomerID = row.PrestashopCustomerID
	m.OrderDateKey = row.OrderDateKey
	m.Quantity = decimal.NewFromFloat(row.Quantity)
	m.UnitPrice = floatPtrToDecimal(row.UnitPrice)
	m.LineTotal = floatPtrToDecimal(row.LineTotal)
}

// FactDocumentModel is the persistence model for fact_documents
type FactDocumentModel struct {
	DocID     int             `gorm:"primaryKey;autoIncrement:false"`
	DocDate   string          `gorm:"type:varchar(10);not null"`
	YearMonth string          `gorm:"type:varchar(7);not null;index"`
	ClientID  int             `gorm:"not null;index"`
	DocType   string          `gorm:"type:varchar(20)"`
	Total     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (FactDocumentModel) TableName() string {
	return "fact_documents"
}

// ToDomain converts the persistence model to a domain row
func (m *FactDocumentModel) ToDomain() warehouse.FactDocument {
	return warehouse.FactDocument{
		DocID:     m.DocID,
		DocDate:   m.DocDate,
		YearMonth: m.YearMonth,
		ClientID:  m.ClientID,
		DocType:   m.DocType,
		Total:     m.Total.InexactFloat64(),
	}
}

// FromDomain populates the persistence model from a domain row
func (m *FactDocumentModel) FromDomain(row warehouse.FactDocument) {
	m.DocID = row.DocID
	m.DocDate = row.DocDate
	m.YearMonth = row.YearMonth
	m.ClientID = row.ClientID
	m.DocType = row.DocType
	m.Total = decimal.NewFromFloat(row.Total)
}

// SalesByProductModel is the persistence model for agg_sales_by_product
type SalesByProductModel struct {
	ProductKey  int             `gorm:"primaryKey;autoIncrement:false"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	UnitsSold   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Revenue     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (SalesByProductModel) TableName() string {
	return "agg_sales_by_product"
}

// ToDomain converts the persistence model to a domain row
func (m *SalesByProductModel) ToDomain() warehouse.SalesByProduct {
	return warehouse.SalesByProduct{
		ProductKey:  m.ProductKey,
		ProductName: m.ProductName,
		UnitsSold:   m.UnitsSold.InexactFloat64(),
		Revenue:     m.Revenue.InexactFloat64(),
	}
}

// FromDomain populates the persistence model from a domain row
func (m *SalesByProductModel) FromDomain(row warehouse.SalesByProduct) {
	m.ProductKey = row.ProductKey
	m.ProductName = row.ProductName
	m.UnitsSold = decimal.NewFromFloat(row.UnitsSold)
	m.Revenue = decimal.NewFromFloat(row.Revenue)
}

func decimalPtrToFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func floatPtrToDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
