package partner

import "context"

// EntityFilter narrows entity listings
type EntityFilter struct {
	Search   string
	OrderBy  string
	OrderDir string
	Page     int
	PageSize int
}

// EntityRepository persists trading partners
type EntityRepository interface {
	FindByID(ctx context.Context, id string) (*Entity, error)
	// FindByName matches the display name exactly; the oldest entity wins ties
	FindByName(ctx context.Context, name string) (*Entity, error)
	Create(ctx context.Context, e *Entity) error
	Save(ctx context.Context, e *Entity) error
	List(ctx context.Context, filter EntityFilter) ([]Entity, int64, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// MeritAuditRepository is the append-only merit history
type MeritAuditRepository interface {
	Append(ctx context.Context, entry *MeritAuditEntry) error
	// ListByEntity returns entries newest first
	ListByEntity(ctx context.Context, entityID string, limit int) ([]MeritAuditView, error)
	// ListRecent returns entries across entities newest first
	ListRecent(ctx context.Context, limit int) ([]MeritAuditView, error)
}

// MarketPriceRepository stores the last known unit price per entity and item
type MarketPriceRepository interface {
	Find(ctx context.Context, entityID, itemName string) (*MarketPrice, error)
	Upsert(ctx context.Context, price *MarketPrice) error
}
