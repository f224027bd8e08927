package reconciliation

import (
	"context"
	"errors"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/domain/shared"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// QueryService serves the read side: documents, entity snapshots, audit
// trails, orphans and review queues
type QueryService struct {
	documents   ledger.DocumentRepository
	settlements ledger.SettlementRepository
	reviews     ledger.ReviewRepository
	entities    partner.EntityRepository
	audit       partner.MeritAuditRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(repos Repositories) *QueryService {
	return &QueryService{
		documents:   repos.DocumentRepo,
		settlements: repos.SettlementRepo,
		reviews:     repos.ReviewRepo,
		entities:    repos.EntityRepo,
		audit:       repos.MeritAuditRepo,
	}
}

// GetDocument returns a document with its line items
func (s *QueryService) GetDocument(ctx context.Context, id string) (*DocumentResponse, error) {
	doc, err := s.documents.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError(shared.CodeDocumentNotFound, "Document not found: "+id)
	}
	if err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// ListDocuments returns a page of document headers with their items
func (s *QueryService) ListDocuments(ctx context.Context, filter ledger.DocumentFilter) ([]DocumentResponse, int64, error) {
	docs, total, err := s.documents.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToDocumentResponses(docs), total, nil
}

// GetEntity returns an entity snapshot
func (s *QueryService) GetEntity(ctx context.Context, id string) (*partner.Snapshot, error) {
	e, err := s.entities.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError(shared.CodeEntityNotFound, "Entity not found: "+id)
	}
	if err != nil {
		return nil, err
	}
	snap := e.Snapshot()
	return &snap, nil
}

// ListEntities returns a page of entity snapshots
func (s *QueryService) ListEntities(ctx context.Context, filter partner.EntityFilter) ([]partner.Snapshot, int64, error) {
	entities, total, err := s.entities.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToEntityResponses(entities), total, nil
}

// EntityAudit returns the merit history of one entity, newest first
func (s *QueryService) EntityAudit(ctx context.Context, entityID string, limit int) ([]AuditEntryResponse, error) {
	if _, err := s.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}
	views, err := s.audit.ListByEntity(ctx, entityID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return ToAuditEntryResponses(views), nil
}

// RecentAudit returns the merit history across entities, newest first
func (s *QueryService) RecentAudit(ctx context.Context, limit int) ([]AuditEntryResponse, error) {
	views, err := s.audit.ListRecent(ctx, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return ToAuditEntryResponses(views), nil
}

// ListOrphans returns unmatched settlements, newest first
func (s *QueryService) ListOrphans(ctx context.Context, limit int) ([]OrphanResponse, error) {
	orphans, err := s.settlements.ListOrphans(ctx, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return ToOrphanResponses(orphans), nil
}

// ListReviews returns parked documents, newest first
func (s *QueryService) ListReviews(ctx context.Context, queue ledger.ReviewQueue, limit int) ([]ReviewResponse, error) {
	items, err := s.reviews.List(ctx, queue, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return ToReviewResponses(items), nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
