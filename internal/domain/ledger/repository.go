package ledger

import "context"

// DocumentFilter narrows document listings
type DocumentFilter struct {
	EntityID string
	Type     DocumentType
	Status   Status
	OrderBy  string
	OrderDir string
	Page     int
	PageSize int
}

// DocumentRepository persists document headers together with their line items
type DocumentRepository interface {
	// Create inserts the header and every line item. A duplicate id yields shared.ErrAlreadyExists.
	Create(ctx context.Context, doc *Document) error
	// FindByID loads the header and its line items
	FindByID(ctx context.Context, id string) (*Document, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	SaveLineItem(ctx context.Context, item *LineItem) error
	ListLineItems(ctx context.Context, documentID string) ([]LineItem, error)
	// ListLineItemsByEntity returns every line of the entity's documents of the given type
	ListLineItemsByEntity(ctx context.Context, entityID string, docType DocumentType) ([]LineItem, error)
	List(ctx context.Context, filter DocumentFilter) ([]Document, int64, error)
}

// BucketRepository persists obligation buckets
type BucketRepository interface {
	// CreateBatch inserts buckets and assigns their insertion sequence
	CreateBatch(ctx context.Context, buckets []*ObligationBucket) error
	// FindOpen returns open buckets for an item on one side ordered by sequence.
	// An empty entityID searches across all entities.
	FindOpen(ctx context.Context, side BucketSide, entityID, itemName string) ([]*ObligationBucket, error)
	Save(ctx context.Context, bucket *ObligationBucket) error
	ListByDocument(ctx context.Context, documentID string) ([]*ObligationBucket, error)
}

// SettlementRepository persists allocation markers, settlements and orphans
type SettlementRepository interface {
	// RecordAllocation inserts the marker for a natural key. It returns false
	// without error when the key was already applied.
	RecordAllocation(ctx context.Context, record *AllocationRecord) (bool, error)
	UpdateAllocation(ctx context.Context, record *AllocationRecord) error
	FindAllocation(ctx context.Context, key AllocationKey) (*AllocationRecord, error)
	CreateSettlement(ctx context.Context, s *Settlement) error
	ListBySource(ctx context.Context, sourceDocumentID string) ([]Settlement, error)
	ListByTarget(ctx context.Context, targetDocumentID string) ([]Settlement, error)
	CreateOrphan(ctx context.Context, o *OrphanSettlement) error
	ListOrphans(ctx context.Context, limit int) ([]OrphanSettlement, error)
}

// ReviewRepository persists the manual-review queues
type ReviewRepository interface {
	Create(ctx context.Context, item *ReviewItem) error
	// List returns entries newest first; an empty queue lists every queue
	List(ctx context.Context, queue ReviewQueue, limit int) ([]ReviewItem, error)
}
