package persistence

import (
	"context"
	"time"

	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMarketPriceRepository implements partner.MarketPriceRepository using GORM
type GormMarketPriceRepository struct {
	db *gorm.DB
}

// NewGormMarketPriceRepository creates a new GormMarketPriceRepository
func NewGormMarketPriceRepository(db *gorm.DB) *GormMarketPriceRepository {
	return &GormMarketPriceRepository{db: db}
}

// Find returns the last recorded unit price of an item from an entity
func (r *GormMarketPriceRepository) Find(ctx context.Context, entityID, itemName string) (*partner.MarketPrice, error) {
	var model models.MarketPriceModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ? AND item_name = ?", entityID, itemName).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Upsert inserts or replaces the price for the entity and item
func (r *GormMarketPriceRepository) Upsert(ctx context.Context, price *partner.MarketPrice) error {
	model := &models.MarketPriceModel{
		EntityID:  price.EntityID,
		ItemName:  price.ItemName,
		UnitPrice: price.UnitPrice,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_id"}, {Name: "item_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"unit_price", "updated_at"}),
	}).Create(model).Error
}

// Ensure GormMarketPriceRepository implements partner.MarketPriceRepository
var _ partner.MarketPriceRepository = (*GormMarketPriceRepository)(nil)
