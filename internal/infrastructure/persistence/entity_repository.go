package persistence

import (
	"context"
	"strings"

	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/meritledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormEntityRepository implements partner.EntityRepository using GORM
type GormEntityRepository struct {
	db *gorm.DB
}

// NewGormEntityRepository creates a new GormEntityRepository
func NewGormEntityRepository(db *gorm.DB) *GormEntityRepository {
	return &GormEntityRepository{db: db}
}

// FindByID finds an entity by its ID
func (r *GormEntityRepository) FindByID(ctx context.Context, id string) (*partner.Entity, error) {
	var model models.EntityModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByName finds the oldest entity whose name matches exactly
func (r *GormEntityRepository) FindByName(ctx context.Context, name string) (*partner.Entity, error) {
	if name == "" {
		return nil, shared.ErrNotFound
	}
	var model models.EntityModel
	if err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at ASC, id ASC").
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new entity; an existing id yields shared.ErrAlreadyExists
func (r *GormEntityRepository) Create(ctx context.Context, e *partner.Entity) error {
	return translateError(r.db.WithContext(ctx).Create(models.EntityModelFromDomain(e)).Error)
}

// Save updates merit, streak and debt of an existing entity
func (r *GormEntityRepository) Save(ctx context.Context, e *partner.Entity) error {
	return translateError(r.db.WithContext(ctx).Save(models.EntityModelFromDomain(e)).Error)
}

// List returns a page of entities and the total count
func (r *GormEntityRepository) List(ctx context.Context, filter partner.EntityFilter) ([]partner.Entity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.EntityModel{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(id) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := pageBounds(filter.Page, filter.PageSize)
	var rows []models.EntityModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, EntitySortFields, "created_at")).
		Offset(offset).Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entities := make([]partner.Entity, len(rows))
	for i := range rows {
		entities[i] = *rows[i].ToDomain()
	}
	return entities, total, nil
}

// ListIDs returns every entity id in ascending order
func (r *GormEntityRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&models.EntityModel{}).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Ensure GormEntityRepository implements partner.EntityRepository
var _ partner.EntityRepository = (*GormEntityRepository)(nil)
