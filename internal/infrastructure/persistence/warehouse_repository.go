package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phc/analytics-backend/internal/domain/shared"
	"github.com/phc/analytics-backend/internal/domain/warehouse"
	"github.com/phc/analytics-backend/internal/infrastructure/persistence/models"
)

const createBatchSize = 500

// publishedTables lists the tables exposed through the read API. Anything
// outside this set is treated as nonexistent.
var publishedTables = map[string]bool{
	"dim_customer":         true,
	"dim_product":          true,
	"dim_date":             true,
	"dim_clients":          true,
	"fact_orders":          true,
	"fact_order_lines":     true,
	"fact_documents":       true,
	"agg_sales_by_product": true,
}

// GormWarehouseRepository persists warehouse rows using GORM.
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new warehouse repository.
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// ArchiveRaw stores the verbatim extract payload for one entity in the raw zone.
func (r *GormWarehouseRepository) ArchiveRaw(ctx context.Context, batchID uuid.UUID, entity string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode raw payload for %s: %w", entity, err)
	}

	model := models.RawExtractModel{
		ID:         uuid.New(),
		BatchID:    batchID,
		Entity:     entity,
		Payload:    string(encoded),
		ArchivedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("archive raw %s extract: %w", entity, err)
	}
	return nil
}

// replaceAll swaps the full contents of a table inside one transaction.
func replaceAll[T any](ctx context.Context, db *gorm.DB, model *T, rows []T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, createBatchSize).Error
	})
}

// ReplaceDimCustomers replaces the customer dimension with the given snapshot.
func (r *GormWarehouseRepository) ReplaceDimCustomers(ctx context.Context, rows []warehouse.DimCustomer) error {
	converted := make([]models.DimCustomerModel, 0, len(rows))
	for _, row := range rows {
		var model models.DimCustomerModel
		model.FromDomain(row)
		converted = append(converted, model)
	}
	if err := replaceAll(ctx, r.db, &models.DimCustomerModel{}, converted); err != nil {
		return fmt.Errorf("replace dim_customer: %w", err)
	}
	return nil
}

// ReplaceDimProducts replaces the product dimension with the given snapshot.
func (r *GormWarehouseRepository) ReplaceDimProducts(ctx context.Context, rows []warehouse.DimProduct) error {
	converted := make([]models.DimProductModel, 0, len(rows))
	for _, row := range rows {
		var model models.DimProductModel
		model.FromDomain(row)
		converted = append(converted, model)
	}
	if err := replaceAll(ctx, r.db, &models.DimProductModel{}, converted); err != nil {
		return fmt.Errorf("replace dim_product: %w", err)
	}
	return nil
}

// ReplaceDimDates replaces the date dimension with the given snapshot.
func (r *GormWarehouseRepository) ReplaceDimDates(ctx context.Context, rows []warehouse.DimDate) error {
	converted := make([]models.DimDateModel, 0, len(rows))
	for _, row := range rows {
		var model models.DimDateModel
		model.FromDomain(row)
		converted = append(converted, model)
	}
	if err := replaceAll(ctx, r.db, &models.DimDateModel{}, converted); err != nil {
		return fmt.Errorf("replace dim_date: %w", err)
	}
	return nil
}

// ReplaceDimClients replaces the billing client dimension with the given snapshot.
func (r *GormWarehouseRepository) ReplaceDimClients(ctx context.Context, rows []warehouse.DimClient) error {
	converted := make([]models.DimClientModel, 0, len(rows))
	for _, row := range rows {
		var model models.DimClientModel
		model.FromDomain(row)
		converted = append(converted, model)
	}
	if err := replaceAll(ctx, r.db, &models.DimClientModel{}, converted); err != nil {
		return fmt.Errorf("replace dim_clients: %w", err)
	}
	return nil
}

// ReplaceSalesByProduct replaces the per-product sales aggregate.
func (r *GormWarehouseRepository) ReplaceSalesByProduct(ctx context.Context, rows []warehouse.SalesByProduct) error {
	converted := make([]models.SalesByProductModel, 0, len(rows))
	for _, row := range rows {
		var model models.SalesByProductModel
		model.FromDomain(row)
		converted = append(converted, model)
	}
	if err := replaceAll(ctx, r.db, &models.SalesByProductModel{}, converted); err != nil {
		return fmt.Errorf("replace agg_sales_by_product: %w", err)
	}
	return nil
}

// UpsertFactOrders inserts or updates order facts keyed by the source order id.
func (r *GormWarehouseRepository) UpsertFactOrders(ctx context.Context, rows []warehouse.FactOrder) error {
	if len(rows) == 0 {
		return nil
	}
	converted := make([]models.FactOrderModel, 0, len(rows))
	for _, row := range rows {
		var model models.FactOrderModel
		model.FromDomain(row)
		converted = append(converted, model)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(converted, createBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert fact_orders: %w", err)
	}
	return nil
}

// UpsertFactOrderLines inserts or updates order line facts keyed by order and product.
func (r *GormWarehouseRepository) UpsertFactOrderLines(ctx context.Context, rows []warehouse.FactOrderLine) error {
	if len(rows) == 0 {
		return nil
	}
	converted := make([]models.FactOrderLineModel, 0, len(rows))
	for _, row := range rows {
		var model models.FactOrderLineModel
		model.FromDomain(row)
		converted = append(converted, model)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(converted, createBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert fact_order_lines: %w", err)
	}
	return nil
}

// UpsertFactDocuments inserts or updates billing document facts keyed by document id.
func (r *GormWarehouseRepository) UpsertFactDocuments(ctx context.Context, rows []warehouse.FactDocument) error {
	if len(rows) == 0 {
		return nil
	}
	converted := make([]models.FactDocumentModel, 0, len(rows))
	for _, row := range rows {
		var model models.FactDocumentModel
		model.FromDomain(row)
		converted = append(converted, model)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(converted, createBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert fact_documents: %w", err)
	}
	return nil
}

// ListFactOrderLines returns all order line facts ordered by their natural key.
func (r *GormWarehouseRepository) ListFactOrderLines(ctx context.Context) ([]warehouse.FactOrderLine, error) {
	var stored []models.FactOrderLineModel
	err := r.db.WithContext(ctx).
		Order("prestashop_order_id, prestashop_product_id").
		Find(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("list fact_order_lines: %w", err)
	}

	rows := make([]warehouse.FactOrderLine, 0, len(stored))
	for _, model := range stored {
		rows = append(rows, model.ToDomain())
	}
	return rows, nil
}

// ListFactDocuments returns all billing document facts ordered by document id.
func (r *GormWarehouseRepository) ListFactDocuments(ctx context.Context) ([]warehouse.FactDocument, error) {
	var stored []models.FactDocumentModel
	err := r.db.WithContext(ctx).Order("doc_id").Find(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("list fact_documents: %w", err)
	}

	rows := make([]warehouse.FactDocument, 0, len(stored))
	for _, model := range stored {
		rows = append(rows, model.ToDomain())
	}
	return rows, nil
}

// TableRows dumps the contents of one published table as generic rows.
// Unknown table names map to shared.ErrNotFound so handlers can 404 them.
func (r *GormWarehouseRepository) TableRows(ctx context.Context, table string) ([]map[string]any, error) {
	if !publishedTables[table] {
		return nil, shared.ErrNotFound
	}
	rows := make([]map[string]any, 0)
	if err := r.db.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read table %s: %w", table, err)
	}
	return rows, nil
}
