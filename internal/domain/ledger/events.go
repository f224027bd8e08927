package ledger

import (
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeDocumentRecorded         = "DocumentRecorded"
	EventTypeDocumentStatusChanged    = "DocumentStatusChanged"
	EventTypeSettlementApplied        = "SettlementApplied"
	EventTypeOrphanSettlementRecorded = "OrphanSettlementRecorded"
	EventTypeDocumentQueuedForReview  = "DocumentQueuedForReview"
)

// AggregateTypeDocument is the aggregate type for ledger documents
const AggregateTypeDocument = "Document"

// DocumentRecordedEvent is raised when a document enters the ledger
type DocumentRecordedEvent struct {
	shared.BaseDomainEvent
	DocumentType DocumentType    `json:"document_type"`
	EntityID     string          `json:"entity_id"`
	Total        decimal.Decimal `json:"total"`
	ItemCount    int             `json:"item_count"`
}

// NewDocumentRecordedEvent creates a DocumentRecordedEvent
func NewDocumentRecordedEvent(d *Document) *DocumentRecordedEvent {
	return &DocumentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentRecorded, AggregateTypeDocument, d.ID),
		DocumentType:    d.Type,
		EntityID:        d.EntityID,
		Total:           d.Total,
		ItemCount:       len(d.LineItems),
	}
}

// DocumentStatusChangedEvent is raised when a roll-up moves a document to a new status
type DocumentStatusChangedEvent struct {
	shared.BaseDomainEvent
	From Status `json:"from"`
	To   Status `json:"to"`
}

// NewDocumentStatusChangedEvent creates a DocumentStatusChangedEvent
func NewDocumentStatusChangedEvent(documentID string, from, to Status) *DocumentStatusChangedEvent {
	return &DocumentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentStatusChanged, AggregateTypeDocument, documentID),
		From:            from,
		To:              to,
	}
}

// SettlementAppliedEvent is raised for every bucket consumption
type SettlementAppliedEvent struct {
	shared.BaseDomainEvent
	TargetDocumentID string          `json:"target_document_id"`
	ItemName         string          `json:"item_name"`
	Quantity         decimal.Decimal `json:"quantity"`
	Amount           decimal.Decimal `json:"amount"`
	BucketStatus     Status          `json:"bucket_status"`
}

// NewSettlementAppliedEvent creates a SettlementAppliedEvent keyed by the source document
func NewSettlementAppliedEvent(s *Settlement, bucketStatus Status) *SettlementAppliedEvent {
	return &SettlementAppliedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSettlementApplied, AggregateTypeDocument, s.SourceDocumentID),
		TargetDocumentID: s.TargetDocumentID,
		ItemName:         s.ItemName,
		Quantity:         s.Quantity,
		Amount:           s.Amount,
		BucketStatus:     bucketStatus,
	}
}

// OrphanSettlementRecordedEvent is raised when incoming quantity found no open bucket
type OrphanSettlementRecordedEvent struct {
	shared.BaseDomainEvent
	EntityID string          `json:"entity_id"`
	ItemName string          `json:"item_name"`
	Quantity decimal.Decimal `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   OrphanReason    `json:"reason"`
}

// NewOrphanSettlementRecordedEvent creates an OrphanSettlementRecordedEvent
func NewOrphanSettlementRecordedEvent(o *OrphanSettlement) *OrphanSettlementRecordedEvent {
	return &OrphanSettlementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrphanSettlementRecorded, AggregateTypeDocument, o.SourceDocumentID),
		EntityID:        o.EntityID,
		ItemName:        o.ItemName,
		Quantity:        o.Quantity,
		Amount:          o.Amount,
		Reason:          o.Reason,
	}
}

// DocumentQueuedForReviewEvent is raised when identity resolution parks a document
type DocumentQueuedForReviewEvent struct {
	shared.BaseDomainEvent
	Queue  ReviewQueue `json:"queue"`
	Reason string      `json:"reason"`
}

// NewDocumentQueuedForReviewEvent creates a DocumentQueuedForReviewEvent
func NewDocumentQueuedForReviewEvent(r *ReviewItem) *DocumentQueuedForReviewEvent {
	return &DocumentQueuedForReviewEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentQueuedForReview, AggregateTypeDocument, r.DocumentID),
		Queue:           r.Queue,
		Reason:          r.Reason,
	}
}
