package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/phc/analytics-backend/internal/domain/shared"
	"github.com/phc/analytics-backend/internal/domain/warehouse"
	"github.com/phc/analytics-backend/internal/infrastructure/persistence/models"
)

func setupWarehouseTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.RawExtractModel{},
		&models.WatermarkModel{},
		&models.DimCustomerModel{},
		&models.DimProductModel{},
		&models.DimDateModel{},
		&models.DimClientModel{},
		&models.FactOrderModel{},
		&models.FactOrderLineModel{},
		&models.FactDocumentModel{},
		&models.SalesByProductModel{},
	)
	require.NoError(t, err)

	return db
}

func TestGormWarehouseRepository_ArchiveRaw(t *testing.T) {
	db := setupWarehouseTestDB(t)
	repo := NewGormWarehouseRepository(db)
	ctx := context.Background()

	batchID := uuid.New()
	payload := []map[string]any{{"id": 1, "email": "ana@example.com"}}

	err := repo.ArchiveRaw(ctx, batchID, "customers", payload)
	require.NoError(t, err)

	var stored []models.RawExtractModel
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, batchID, stored[0].BatchID)
	assert.Equal(t, "customers", stored[0].Entity)
	assert.JSONEq(t, `[{"id":1,"email":"ana@example.com"}]`, stored[0].Payload)

	t.Run("appends across runs", func(t *testing.T) {
		err := repo.ArchiveRaw(ctx, uuid.New(), "customers", payload)
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.RawExtractModel{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}

func TestGormWarehouseRepository_ReplaceDimCustomers(t *testing.T) {
	db := setupWarehouseTestDB(t)
	repo := NewGormWarehouseRepository(db)
	ctx := context.Background()

	first := []warehouse.DimCustomer{
		{CustomerKey: 1, PrestashopCustomerID: 1, Email: "ana@example.com", FullName: "Ana Silva", Active: true},
		{CustomerKey: 2, PrestashopCustomerID: 2, Email: "rui@example.com", FullName: "Rui Costa", Active: true},
	}
	require.NoError(t, repo.ReplaceDimCustomers(ctx, first))

	t.Run("replaces the full snapshot", func(t *testing.T) {
		second := []warehouse.DimCustomer{
			{CustomerKey: 2, PrestashopCustomerID: 2, Email: "rui@example.com", FullName: "Rui Costa", Active: false},
		}
		require.NoError(t, repo.ReplaceDimCustomers(ctx, second))

		var stored []models.DimCustomerModel
		require.NoError(t, db.Find(&stored).Error)
		require.Len(t, stored, 1)
		assert.Equal(t, 2, stored[0].CustomerKey)
		assert.False(t, stored[0].Active)
	})

	t.Run("empty snapshot clears the table", func(t *testing.T) {
		require.NoError(t, repo.ReplaceDimCustomers(ctx, nil))

		var count int64
		require.NoError(t, db.Model(&models.DimCustomerModel{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func TestGormWarehouseRepository_ReplaceDimProducts(t *testing.T) {
	db := setupWarehouseTestDB(t)
	repo := NewGormWarehouseRepository(db)
	ctx := context.Background()

	price := 12.5
	rows := []warehouse.DimProduct{
		{ProductKey: 10, PrestashopProductID: 10, SKU: "SKU-10", Name: "Widget", Active: true, Price: &price},
		{ProductKey: 11, PrestashopProductID: 11, Name: "No price", Active: true},
	}
	require.NoError(t, repo.ReplaceDimProducts(ctx, rows))

	var stored []models.DimProductModel
	require.NoError(t, db.Order("product_key").Find(&stored).Error)
	require.Len(t, stored, 2)
	require.NotNil(t, stored[0].Price)
	assert.InDelta(t, 12.5, stored[0].Price.InexactFloat64(), 0.0001)
	assert.Nil(t, stored[1].Price)
}

func TestGormWarehouseRepository_UpsertFactOrders(t *testing.T) {
	db := setupWarehouseTestDB(t)
	repo := NewGormWarehouseRepository(db)
	ctx := context.Background()

	order := warehouse.FactOrder{
		PrestashopOrderID:    100,
		PrestashopCustomerID: 1,
		Status:               "2",
		TotalPaid:            25.0,
		OrderDateKey:         20240303,
		CreatedAt:            "2024-03-03T10:00:00",
		UpdatedAt:            "2024-03-03T10:00:00",
	}
	require.NoError(t, repo.UpsertFactOrders(ctx, []warehouse.FactOrder{order}))

	t.Run("replaying an updated order keeps one row", func(t *testing.T) {
		order.Status = "3"
		order.TotalPaid = 30.0
		order.UpdatedAt = "2024-03-04T09:00:00"
		require.NoError(t, repo.UpsertFactOrders(ctx, []warehouse.FactOrder{order}))

		var stored []models.FactOrderModel
		require.NoError(t, db.Find(&stored).Error)
		require.Len(t, stored, 1)
		assert.Equal(t, "3", stored[0].Status)
		assert.InDelta(t, 30.0, stored[0].TotalPaid.InexactFloat64(), 0.0001)
		assert.Equal(t, "2024-03-04T09:00:00", stored[0].UpdatedAt)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, repo.UpsertFactOrders(ctx, nil))
	})
}

func TestGormWarehouseRepository_UpsertFactOrderLines(t *testing.T) {
	db := setupWarehouseTestDB(t)
	repo := NewGormWarehouseRepository(db)
	ctx := context.Background()

	unitPrice := 12.5
	lineTotal := 25.0
	lines := []warehouse.FactOrderLine{
		{PrestashopOrderID: 101, PrestashopProductID: 10, PrestashopCustomerID: 1, OrderDateKey: 20240304, Quantity: 1},
		{PrestashopOrderID: 100, PrestashopProductID: 11, PrestashopCustomerID: 1, OrderDateKey: 20240303, Quantity: 3},
		{PrestashopOrderID: 100, PrestashopProductID: 10, PrestashopCustomerID: 1, OrderDateKey: 20240303, Quantity: 2, UnitPrice: &unitPrice, LineTotal: &lineTotal},
	}
	require.NoError(t, repo.UpsertFactOrderLines(ctx, lines))

	t.Run("lists lines ordered by order and product", func(t *testing.T) {
		listed, err := repo.ListFactOrderLines(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, 100, listed[0].PrestashopOrderID)
		assert.Equal(t, 10, listed[0].PrestashopProductID)
		assert.Equal(t, 11, listed[1].PrestashopProductID)
		assert.Equal(t, 101, listed[2].PrestashopOrderID)
		require.NotNil(t, listed[0].UnitPrice)
		assert.InDelta(t, 12.5, *listed[0].UnitPrice, 0.0001)
		assert.Nil(t, listed[1].UnitPrice)
	})

	t.Run("replay on the composite key does not duplicate", func(t *testing.T) {
		lines[2].Quantity = 4
		require.NoError(t, repo.UpsertFactOrderLines(ctx, lines))

		listed, err := repo.ListFactOrderLines(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.InDelta(t, 4.0, listed[0].Quantity, 0.0001)
	})
}

func TestGormWarehouseRepository_UpsertFactDocuments(t *testing.T) {
	db := setupWarehouseTestDB(t)
	repo := NewGormWarehouseRepository(db)
	ctx := context.Background()

	docs := []warehouse.FactDocument{
		{DocID: 2, DocDate: "2024-02-10", YearMonth: "2024-02", ClientID: 7, DocType: "FT", Total: 300},
		{DocID: 1, DocDate: "2024-01-15", YearMonth: "2024-01", ClientID: 7, DocType: "FT", Total: 100},
	}
	require.NoError(t, repo.UpsertFactDocuments(ctx, docs))

	listed, err := repo.ListFactDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, 1, listed[0].DocID)
	assert.Equal(t, 2, listed[1].DocID)

	t.Run("replay updates in place", func(t *testing.T) {
		docs[0].Total = 350
		require.NoError(t, repo.UpsertFactDocuments(ctx, docs))

		listed, err := repo.ListFactDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.InDelta(t, 350.0, listed[1].Total, 0.0001)
	})
}

func TestGormWarehouseRepository_ReplaceSalesByProduct(t *testing.T) {
	db := setupWarehouseTestDB(t)
	repo := NewGormWarehouseRepository(db)
	ctx := context.Background()

	rows := []warehouse.SalesByProduct{
		{ProductKey: 10, ProductName: "Widget", UnitsSold: 2, Revenue: 25.0},
	}
	require.NoError(t, repo.ReplaceSalesByProduct(ctx, rows))

	rows[0].Revenue = 50.0
	require.NoError(t, repo.ReplaceSalesByProduct(ctx, rows))

	var stored []models.SalesByProductModel
	require.NoError(t, db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.InDelta(t, 50.0, stored[0].Revenue.InexactFloat64(), 0.0001)
}

func TestGormWarehouseRepository_TableRows(t *testing.T) {
	db := setupWarehouseTestDB(t)
	repo := NewGormWarehouseRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceDimClients(ctx, []warehouse.DimClient{
		{ClientID: 7, ClientName: "Cliente A"},
	}))

	t.Run("returns rows from a published table", func(t *testing.T) {
		rows, err := repo.TableRows(ctx, "dim_clients")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Cliente A", rows[0]["client_name"])
	})

	t.Run("empty published table returns empty slice", func(t *testing.T) {
		rows, err := repo.TableRows(ctx, "dim_date")
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("unknown table returns not found", func(t *testing.T) {
		_, err := repo.TableRows(ctx, "etl_watermarks")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
