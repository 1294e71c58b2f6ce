package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phc/analytics-backend/internal/domain/warehouse"
	"github.com/phc/analytics-backend/internal/infrastructure/persistence/models"
)

// GormWatermarkStore implements warehouse.WatermarkStore using GORM, one row
// per entity in etl_watermarks.
type GormWatermarkStore struct {
	db *gorm.DB
}

// NewGormWatermarkStore creates a new GormWatermarkStore
func NewGormWatermarkStore(db *gorm.DB) *GormWatermarkStore {
	return &GormWatermarkStore{db: db}
}

// Get returns the stored watermark for the entity, nil when the entity has
// never completed a load.
func (r *GormWatermarkStore) Get(ctx context.Context, entityName string) (*warehouse.Watermark, error) {
	var model models.WatermarkModel
	if err := r.db.WithContext(ctx).First(&model, "entity_name = ?", entityName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Set stores the new watermark timestamp for the entity, inserting the row on
// first load.
func (r *GormWatermarkStore) Set(ctx context.Context, entityName, watermarkTS string) error {
	model := models.WatermarkModel{
		EntityName:  entityName,
		WatermarkTS: watermarkTS,
		UpdatedAt:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"watermark_ts", "updated_at"}),
		}).
		Create(&model).Error
}
