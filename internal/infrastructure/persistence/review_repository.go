package persistence

import (
	"context"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReviewRepository implements ledger.ReviewRepository using GORM
type GormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GormReviewRepository
func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

// Create parks a document on a review queue
func (r *GormReviewRepository) Create(ctx context.Context, item *ledger.ReviewItem) error {
	return translateError(r.db.WithContext(ctx).Create(models.ReviewItemModelFromDomain(item)).Error)
}

// List returns parked documents newest first; an empty queue lists all queues
func (r *GormReviewRepository) List(ctx context.Context, queue ledger.ReviewQueue, limit int) ([]ledger.ReviewItem, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if queue != "" {
		query = query.Where("queue = ?", queue)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.ReviewItemModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]ledger.ReviewItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, nil
}

// Ensure GormReviewRepository implements ledger.ReviewRepository
var _ ledger.ReviewRepository = (*GormReviewRepository)(nil)
