package persistence

import (
	"context"

	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMeritAuditRepository implements partner.MeritAuditRepository using GORM.
// Rows are only ever inserted.
type GormMeritAuditRepository struct {
	db *gorm.DB
}

// NewGormMeritAuditRepository creates a new GormMeritAuditRepository
func NewGormMeritAuditRepository(db *gorm.DB) *GormMeritAuditRepository {
	return &GormMeritAuditRepository{db: db}
}

// Append inserts one audit entry
func (r *GormMeritAuditRepository) Append(ctx context.Context, entry *partner.MeritAuditEntry) error {
	return translateError(r.db.WithContext(ctx).Create(models.MeritAuditModelFromDomain(entry)).Error)
}

// ListByEntity returns the entity's history newest first
func (r *GormMeritAuditRepository) ListByEntity(ctx context.Context, entityID string, limit int) ([]partner.MeritAuditView, error) {
	return r.list(r.joined(ctx).Where("merit_audit.entity_id = ?", entityID), limit)
}

// ListRecent returns the history across all entities newest first
func (r *GormMeritAuditRepository) ListRecent(ctx context.Context, limit int) ([]partner.MeritAuditView, error) {
	return r.list(r.joined(ctx), limit)
}

func (r *GormMeritAuditRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table(models.MeritAuditModel{}.TableName()).
		Select("merit_audit.*, entities.name AS entity_name").
		Joins("LEFT JOIN entities ON entities.id = merit_audit.entity_id")
}

func (r *GormMeritAuditRepository) list(query *gorm.DB, limit int) ([]partner.MeritAuditView, error) {
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.MeritAuditRow
	if err := query.Order("merit_audit.seq DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]partner.MeritAuditView, len(rows))
	for i := range rows {
		views[i] = rows[i].ToDomain()
	}
	return views, nil
}

// Ensure GormMeritAuditRepository implements partner.MeritAuditRepository
var _ partner.MeritAuditRepository = (*GormMeritAuditRepository)(nil)
