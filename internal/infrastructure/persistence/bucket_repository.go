package persistence

import (
	"context"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBucketRepository implements ledger.BucketRepository using GORM
type GormBucketRepository struct {
	db *gorm.DB
}

// NewGormBucketRepository creates a new GormBucketRepository
func NewGormBucketRepository(db *gorm.DB) *GormBucketRepository {
	return &GormBucketRepository{db: db}
}

// CreateBatch inserts buckets in order and copies the assigned sequence back
func (r *GormBucketRepository) CreateBatch(ctx context.Context, buckets []*ledger.ObligationBucket) error {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]*models.BucketModel, len(buckets))
	for i, b := range buckets {
		rows[i] = models.BucketModelFromDomain(b)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return translateError(err)
	}
	for i := range rows {
		buckets[i].Seq = rows[i].Seq
	}
	return nil
}

// FindOpen returns the open buckets for an item on one side, oldest first
func (r *GormBucketRepository) FindOpen(ctx context.Context, side ledger.BucketSide, entityID, itemName string) ([]*ledger.ObligationBucket, error) {
	query := r.db.WithContext(ctx).
		Where("side = ? AND item_name = ? AND status <> ?", side, itemName, ledger.StatusCompleted)
	if entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}

	var rows []models.BucketModel
	if err := query.Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return bucketsToDomain(rows), nil
}

// Save persists the fulfilment progress of a bucket
func (r *GormBucketRepository) Save(ctx context.Context, bucket *ledger.ObligationBucket) error {
	return translateError(r.db.WithContext(ctx).Save(models.BucketModelFromDomain(bucket)).Error)
}

// ListByDocument returns the buckets opened by one invoice
func (r *GormBucketRepository) ListByDocument(ctx context.Context, documentID string) ([]*ledger.ObligationBucket, error) {
	var rows []models.BucketModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return bucketsToDomain(rows), nil
}

func bucketsToDomain(rows []models.BucketModel) []*ledger.ObligationBucket {
	buckets := make([]*ledger.ObligationBucket, len(rows))
	for i := range rows {
		buckets[i] = rows[i].ToDomain()
	}
	return buckets
}

// Ensure GormBucketRepository implements ledger.BucketRepository
var _ ledger.BucketRepository = (*GormBucketRepository)(nil)
