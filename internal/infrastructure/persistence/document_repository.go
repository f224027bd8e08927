package persistence

import (
	"context"
	"time"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/meritledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDocumentRepository implements ledger.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Create inserts the document header and its line items.
// Line item IDs assigned by the database are copied back onto doc.
func (r *GormDocumentRepository) Create(ctx context.Context, doc *ledger.Document) error {
	model := models.DocumentModelFromDomain(doc)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err)
	}
	for i := range model.LineItems {
		doc.LineItems[i].ID = model.LineItems[i].ID
	}
	return nil
}

// FindByID loads the header with line items in insertion order
func (r *GormDocumentRepository) FindByID(ctx context.Context, id string) (*ledger.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Exists reports whether a document with the id has been recorded
func (r *GormDocumentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateStatus sets the rolled-up status of a document
func (r *GormDocumentRepository) UpdateStatus(ctx context.Context, id string, status ledger.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SaveLineItem persists the settlement progress of one line
func (r *GormDocumentRepository) SaveLineItem(ctx context.Context, item *ledger.LineItem) error {
	model := models.LineItemModelFromDomain(item)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return translateError(err)
	}
	item.ID = model.ID
	return nil
}

// ListLineItems returns the lines of one document
func (r *GormDocumentRepository) ListLineItems(ctx context.Context, documentID string) ([]ledger.LineItem, error) {
	var rows []models.LineItemModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return lineItemsToDomain(rows), nil
}

// ListLineItemsByEntity returns the lines of every document of the given type for the entity
func (r *GormDocumentRepository) ListLineItemsByEntity(ctx context.Context, entityID string, docType ledger.DocumentType) ([]ledger.LineItem, error) {
	var rows []models.LineItemModel
	if err := r.db.WithContext(ctx).
		Model(&models.LineItemModel{}).
		Select("line_items.*").
		Joins("JOIN documents ON documents.id = line_items.document_id").
		Where("documents.entity_id = ? AND documents.type = ?", entityID, docType).
		Order("line_items.id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return lineItemsToDomain(rows), nil
}

// List returns a page of documents with their line items and the total count
func (r *GormDocumentRepository) List(ctx context.Context, filter ledger.DocumentFilter) ([]ledger.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{})
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := pageBounds(filter.Page, filter.PageSize)
	var rows []models.DocumentModel
	if err := query.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order(orderClause(filter.OrderBy, filter.OrderDir, DocumentSortFields, "created_at")).
		Offset(offset).Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	docs := make([]ledger.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs, total, nil
}

func lineItemsToDomain(rows []models.LineItemModel) []ledger.LineItem {
	items := make([]ledger.LineItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items
}

// Ensure GormDocumentRepository implements ledger.DocumentRepository
var _ ledger.DocumentRepository = (*GormDocumentRepository)(nil)
