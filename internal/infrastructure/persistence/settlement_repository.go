package persistence

import (
	"context"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettlementRepository implements ledger.SettlementRepository using GORM
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewGormSettlementRepository creates a new GormSettlementRepository
func NewGormSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// RecordAllocation claims the natural key of a receipt line.
// It returns false when another call already claimed it.
func (r *GormSettlementRepository) RecordAllocation(ctx context.Context, record *ledger.AllocationRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.AllocationRecordModelFromDomain(record))
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateAllocation stores the allocated and unmatched totals of a claimed key
func (r *GormSettlementRepository) UpdateAllocation(ctx context.Context, record *ledger.AllocationRecord) error {
	return r.db.WithContext(ctx).
		Model(&models.AllocationRecordModel{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"allocated": record.Allocated,
			"unmatched": record.Unmatched,
		}).Error
}

// FindAllocation loads the record for a natural key
func (r *GormSettlementRepository) FindAllocation(ctx context.Context, key ledger.AllocationKey) (*ledger.AllocationRecord, error) {
	var model models.AllocationRecordModel
	if err := r.db.WithContext(ctx).
		Where("source_document_id = ? AND item_name = ? AND amount = ?", key.SourceDocumentID, key.ItemName, key.Amount).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// CreateSettlement inserts one receipt-to-bucket link
func (r *GormSettlementRepository) CreateSettlement(ctx context.Context, s *ledger.Settlement) error {
	return translateError(r.db.WithContext(ctx).Create(models.SettlementModelFromDomain(s)).Error)
}

// ListBySource returns the settlements produced by one receipt
func (r *GormSettlementRepository) ListBySource(ctx context.Context, sourceDocumentID string) ([]ledger.Settlement, error) {
	return r.listSettlements(r.db.WithContext(ctx).Where("source_document_id = ?", sourceDocumentID))
}

// ListByTarget returns the settlements applied to one invoice
func (r *GormSettlementRepository) ListByTarget(ctx context.Context, targetDocumentID string) ([]ledger.Settlement, error) {
	return r.listSettlements(r.db.WithContext(ctx).Where("target_document_id = ?", targetDocumentID))
}

func (r *GormSettlementRepository) listSettlements(query *gorm.DB) ([]ledger.Settlement, error) {
	var rows []models.SettlementModel
	if err := query.Order("settled_at ASC, bucket_seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	settlements := make([]ledger.Settlement, len(rows))
	for i := range rows {
		settlements[i] = rows[i].ToDomain()
	}
	return settlements, nil
}

// CreateOrphan records receipt quantity that found no open bucket
func (r *GormSettlementRepository) CreateOrphan(ctx context.Context, o *ledger.OrphanSettlement) error {
	return translateError(r.db.WithContext(ctx).Create(models.OrphanSettlementModelFromDomain(o)).Error)
}

// ListOrphans returns orphan settlements newest first
func (r *GormSettlementRepository) ListOrphans(ctx context.Context, limit int) ([]ledger.OrphanSettlement, error) {
	query := r.db.WithContext(ctx).Order("recorded_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.OrphanSettlementModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	orphans := make([]ledger.OrphanSettlement, len(rows))
	for i := range rows {
		orphans[i] = rows[i].ToDomain()
	}
	return orphans, nil
}

// Ensure GormSettlementRepository implements ledger.SettlementRepository
var _ ledger.SettlementRepository = (*GormSettlementRepository)(nil)
