package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for the ledger.Document aggregate.
type DocumentModel struct {
	ID         string              `gorm:"type:varchar(64);primaryKey"`
	Type       ledger.DocumentType `gorm:"type:varchar(16);not null;index:idx_document_entity_type,priority:2"`
	EntityID   string              `gorm:"type:varchar(64);not null;index:idx_document_entity_type,priority:1"`
	IssueDate  *time.Time
	Total      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency   string          `gorm:"type:varchar(8)"`
	Confidence *float64
	Status     ledger.Status   `gorm:"type:varchar(16);not null;default:'Incomplete';index"`
	LineItems  []LineItemModel `gorm:"foreignKey:DocumentID;references:ID"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document.
// Line items are included only when the association was loaded.
func (m *DocumentModel) ToDomain() *ledger.Document {
	doc := &ledger.Document{
		ID:         m.ID,
		Type:       m.Type,
		EntityID:   m.EntityID,
		IssueDate:  m.IssueDate,
		Total:      m.Total,
		TaxTotal:   m.TaxTotal,
		Currency:   m.Currency,
		Confidence: m.Confidence,
		Status:     m.Status,
		LineItems:  make([]ledger.LineItem, len(m.LineItems)),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	for i := range m.LineItems {
		doc.LineItems[i] = m.LineItems[i].ToDomain()
	}
	return doc
}

// DocumentModelFromDomain creates a new persistence model, line items included.
func DocumentModelFromDomain(d *ledger.Document) *DocumentModel {
	m := &DocumentModel{
		ID:         d.ID,
		Type:       d.Type,
		EntityID:   d.EntityID,
		IssueDate:  d.IssueDate,
		Total:      d.Total,
		TaxTotal:   d.TaxTotal,
		Currency:   d.Currency,
		Confidence: d.Confidence,
		Status:     d.Status,
		LineItems:  make([]LineItemModel, len(d.LineItems)),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	for i := range d.LineItems {
		m.LineItems[i] = *LineItemModelFromDomain(&d.LineItems[i])
	}
	return m
}

// LineItemModel is one coalesced item of a document.
type LineItemModel struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement"`
	DocumentID      string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_line_item_document_name,priority:1"`
	Name            string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_line_item_document_name,priority:2"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	AmountObligated decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QtySettled      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AmountSettled   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status          ledger.Status   `gorm:"type:varchar(16);not null;default:'Incomplete'"`
}

// TableName returns the table name for GORM
func (LineItemModel) TableName() string {
	return "line_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *LineItemModel) ToDomain() ledger.LineItem {
	return ledger.LineItem{
		ID:              m.ID,
		DocumentID:      m.DocumentID,
		Name:            m.Name,
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		TaxRate:         m.TaxRate,
		AmountObligated: m.AmountObligated,
		QtySettled:      m.QtySettled,
		AmountSettled:   m.AmountSettled,
		Status:          m.Status,
	}
}

// LineItemModelFromDomain creates a new persistence model from a domain LineItem.
func LineItemModelFromDomain(li *ledger.LineItem) *LineItemModel {
	return &LineItemModel{
		ID:              li.ID,
		DocumentID:      li.DocumentID,
		Name:            li.Name,
		Quantity:        li.Quantity,
		UnitPrice:       li.UnitPrice,
		TaxRate:         li.TaxRate,
		AmountObligated: li.AmountObligated,
		QtySettled:      li.QtySettled,
		AmountSettled:   li.AmountSettled,
		Status:          li.Status,
	}
}

// BucketModel is an open quantity waiting for settlement.
// Seq is the FIFO order.
type BucketModel struct {
	Seq          uint64            `gorm:"primaryKey;autoIncrement"`
	DocumentID   string            `gorm:"type:varchar(64);not null;uniqueIndex:idx_bucket_document_item,priority:1"`
	ItemName     string            `gorm:"type:varchar(200);not null;uniqueIndex:idx_bucket_document_item,priority:2;index:idx_bucket_open,priority:3"`
	EntityID     string            `gorm:"type:varchar(64);not null;index:idx_bucket_open,priority:2"`
	Side         ledger.BucketSide `gorm:"type:varchar(16);not null;index:idx_bucket_open,priority:1"`
	QtyTotal     decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	QtyFulfilled decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice    decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Status       ledger.Status     `gorm:"type:varchar(16);not null;default:'Incomplete';index:idx_bucket_open,priority:4"`
	CreatedAt    time.Time         `gorm:"not null"`
	UpdatedAt    time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BucketModel) TableName() string {
	return "obligation_buckets"
}

// ToDomain converts the persistence model to a domain ObligationBucket.
func (m *BucketModel) ToDomain() *ledger.ObligationBucket {
	return &ledger.ObligationBucket{
		Seq:          m.Seq,
		DocumentID:   m.DocumentID,
		ItemName:     m.ItemName,
		EntityID:     m.EntityID,
		Side:         m.Side,
		QtyTotal:     m.QtyTotal,
		QtyFulfilled: m.QtyFulfilled,
		UnitPrice:    m.UnitPrice,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// BucketModelFromDomain creates a new persistence model from a domain ObligationBucket.
func BucketModelFromDomain(b *ledger.ObligationBucket) *BucketModel {
	return &BucketModel{
		Seq:          b.Seq,
		DocumentID:   b.DocumentID,
		ItemName:     b.ItemName,
		EntityID:     b.EntityID,
		Side:         b.Side,
		QtyTotal:     b.QtyTotal,
		QtyFulfilled: b.QtyFulfilled,
		UnitPrice:    b.UnitPrice,
		Status:       b.Status,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// AllocationRecordModel marks a receipt line as applied.
// The unique natural key makes replays a no-op.
type AllocationRecordModel struct {
	ID               uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	SourceDocumentID string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_allocation_key,priority:1"`
	ItemName         string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_allocation_key,priority:2"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null;uniqueIndex:idx_allocation_key,priority:3"`
	EntityID         string          `gorm:"type:varchar(64);not null;index"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Allocated        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Unmatched        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AppliedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationRecordModel) TableName() string {
	return "allocation_records"
}

// ToDomain converts the persistence model to a domain AllocationRecord.
func (m *AllocationRecordModel) ToDomain() *ledger.AllocationRecord {
	return &ledger.AllocationRecord{
		ID:               m.ID,
		SourceDocumentID: m.SourceDocumentID,
		ItemName:         m.ItemName,
		Amount:           m.Amount,
		EntityID:         m.EntityID,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		Allocated:        m.Allocated,
		Unmatched:        m.Unmatched,
		AppliedAt:        m.AppliedAt,
	}
}

// AllocationRecordModelFromDomain creates a new persistence model from a domain AllocationRecord.
func AllocationRecordModelFromDomain(r *ledger.AllocationRecord) *AllocationRecordModel {
	return &AllocationRecordModel{
		ID:               r.ID,
		SourceDocumentID: r.SourceDocumentID,
		ItemName:         r.ItemName,
		Amount:           r.Amount,
		EntityID:         r.EntityID,
		Quantity:         r.Quantity,
		UnitPrice:        r.UnitPrice,
		Allocated:        r.Allocated,
		Unmatched:        r.Unmatched,
		AppliedAt:        r.AppliedAt,
	}
}

// SettlementModel links a receipt to the bucket it consumed.
type SettlementModel struct {
	ID               uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	SourceDocumentID string          `gorm:"type:varchar(64);not null;index"`
	TargetDocumentID string          `gorm:"type:varchar(64);not null;index"`
	BucketSeq        uint64          `gorm:"not null;index"`
	ItemName         string          `gorm:"type:varchar(200);not null"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SettledAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SettlementModel) TableName() string {
	return "settlements"
}

// ToDomain converts the persistence model to a domain Settlement.
func (m *SettlementModel) ToDomain() ledger.Settlement {
	return ledger.Settlement{
		ID:               m.ID,
		SourceDocumentID: m.SourceDocumentID,
		TargetDocumentID: m.TargetDocumentID,
		BucketSeq:        m.BucketSeq,
		ItemName:         m.ItemName,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		Amount:           m.Amount,
		SettledAt:        m.SettledAt,
	}
}

// SettlementModelFromDomain creates a new persistence model from a domain Settlement.
func SettlementModelFromDomain(s *ledger.Settlement) *SettlementModel {
	return &SettlementModel{
		ID:               s.ID,
		SourceDocumentID: s.SourceDocumentID,
		TargetDocumentID: s.TargetDocumentID,
		BucketSeq:        s.BucketSeq,
		ItemName:         s.ItemName,
		Quantity:         s.Quantity,
		UnitPrice:        s.UnitPrice,
		Amount:           s.Amount,
		SettledAt:        s.SettledAt,
	}
}

// OrphanSettlementModel is receipt quantity that matched no open bucket.
type OrphanSettlementModel struct {
	ID               uuid.UUID           `gorm:"type:varchar(36);primaryKey"`
	SourceDocumentID string              `gorm:"type:varchar(64);not null;index"`
	EntityID         string              `gorm:"type:varchar(64);not null;index"`
	ItemName         string              `gorm:"type:varchar(200);not null"`
	Quantity         decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Amount           decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Reason           ledger.OrphanReason `gorm:"type:varchar(32);not null"`
	RecordedAt       time.Time           `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (OrphanSettlementModel) TableName() string {
	return "orphan_settlements"
}

// ToDomain converts the persistence model to a domain OrphanSettlement.
func (m *OrphanSettlementModel) ToDomain() ledger.OrphanSettlement {
	return ledger.OrphanSettlement{
		ID:               m.ID,
		SourceDocumentID: m.SourceDocumentID,
		EntityID:         m.EntityID,
		ItemName:         m.ItemName,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		Amount:           m.Amount,
		Reason:           m.Reason,
		RecordedAt:       m.RecordedAt,
	}
}

// OrphanSettlementModelFromDomain creates a new persistence model from a domain OrphanSettlement.
func OrphanSettlementModelFromDomain(o *ledger.OrphanSettlement) *OrphanSettlementModel {
	return &OrphanSettlementModel{
		ID:               o.ID,
		SourceDocumentID: o.SourceDocumentID,
		EntityID:         o.EntityID,
		ItemName:         o.ItemName,
		Quantity:         o.Quantity,
		UnitPrice:        o.UnitPrice,
		Amount:           o.Amount,
		Reason:           o.Reason,
		RecordedAt:       o.RecordedAt,
	}
}

// ReviewItemModel is a parked document awaiting a human decision.
type ReviewItemModel struct {
	ID            uuid.UUID           `gorm:"type:varchar(36);primaryKey"`
	DocumentID    string              `gorm:"type:varchar(64);not null;index"`
	DocumentType  ledger.DocumentType `gorm:"type:varchar(16);not null"`
	Queue         ledger.ReviewQueue  `gorm:"type:varchar(32);not null;index"`
	Reason        string              `gorm:"type:text;not null"`
	CandidateID   *string             `gorm:"type:varchar(64)"`
	CandidateName *string             `gorm:"type:varchar(200)"`
	StoredName    string              `gorm:"type:varchar(200)"`
	Similarity    float64             `gorm:"not null;default:0"`
	Payload       string              `gorm:"type:text"`
	CreatedAt     time.Time           `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ReviewItemModel) TableName() string {
	return "review_items"
}

// ToDomain converts the persistence model to a domain ReviewItem.
func (m *ReviewItemModel) ToDomain() ledger.ReviewItem {
	return ledger.ReviewItem{
		ID:            m.ID,
		DocumentID:    m.DocumentID,
		DocumentType:  m.DocumentType,
		Queue:         m.Queue,
		Reason:        m.Reason,
		CandidateID:   m.CandidateID,
		CandidateName: m.CandidateName,
		StoredName:    m.StoredName,
		Similarity:    m.Similarity,
		Payload:       []byte(m.Payload),
		CreatedAt:     m.CreatedAt,
	}
}

// ReviewItemModelFromDomain creates a new persistence model from a domain ReviewItem.
func ReviewItemModelFromDomain(r *ledger.ReviewItem) *ReviewItemModel {
	return &ReviewItemModel{
		ID:            r.ID,
		DocumentID:    r.DocumentID,
		DocumentType:  r.DocumentType,
		Queue:         r.Queue,
		Reason:        r.Reason,
		CandidateID:   r.CandidateID,
		CandidateName: r.CandidateName,
		StoredName:    r.StoredName,
		Similarity:    r.Similarity,
		Payload:       string(r.Payload),
		CreatedAt:     r.CreatedAt,
	}
}

// AllModels lists every model managed by AutoMigrate, in dependency order.
func AllModels() []any {
	return []any{
		&EntityModel{},
		&MeritAuditModel{},
		&MarketPriceModel{},
		&DocumentModel{},
		&LineItemModel{},
		&BucketModel{},
		&AllocationRecordModel{},
		&SettlementModel{},
		&OrphanSettlementModel{},
		&ReviewItemModel{},
	}
}
