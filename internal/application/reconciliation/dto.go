package reconciliation

import (
	"time"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Requests
// =============================================================================

// AllocationRequest asks the allocator to settle one receipt line
type AllocationRequest struct {
	SourceDocumentID string              `json:"source_document_id" binding:"required,max=128"`
	DocumentType     ledger.DocumentType `json:"document_type" binding:"required,oneof=rec_rec rec_sent"`
	EntityID         string              `json:"entity_id" binding:"required,max=64"`
	ItemName         string              `json:"item_name" binding:"required,max=255"`
	Quantity         decimal.Decimal     `json:"quantity"`
	UnitPrice        decimal.Decimal     `json:"unit_price"`
}

// MeritChangeRequest is a manual merit adjustment
type MeritChangeRequest struct {
	Change int    `json:"change" binding:"required"`
	Reason string `json:"reason" binding:"required,max=500"`
}

// PriceCheckRequest runs the price-fairness gate. When Inflation is nil the
// market source is consulted.
type PriceCheckRequest struct {
	EntityID   string          `json:"entity_id" binding:"required,max=64"`
	PriorPrice decimal.Decimal `json:"prior_price"`
	NewPrice   decimal.Decimal `json:"new_price"`
	Inflation  *float64        `json:"inflation"`
}

// =============================================================================
// Responses
// =============================================================================

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	Name            string          `json:"name"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	AmountObligated decimal.Decimal `json:"amount_obligated"`
	QtySettled      decimal.Decimal `json:"qty_settled"`
	AmountSettled   decimal.Decimal `json:"amount_settled"`
	Status          string          `json:"status"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	EntityID    string             `json:"entity_id"`
	IssueDate   *time.Time         `json:"issue_date,omitempty"`
	Total       decimal.Decimal    `json:"total"`
	TaxTotal    decimal.Decimal    `json:"tax_total"`
	Currency    string             `json:"currency,omitempty"`
	Confidence  *float64           `json:"confidence,omitempty"`
	Status      string             `json:"status"`
	Outstanding decimal.Decimal    `json:"outstanding"`
	Items       []LineItemResponse `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ToDocumentResponse converts a domain document to a response
func ToDocumentResponse(d *ledger.Document) DocumentResponse {
	items := make([]LineItemResponse, 0, len(d.LineItems))
	for _, li := range d.LineItems {
		items = append(items, LineItemResponse{
			Name:            li.Name,
			Quantity:        li.Quantity,
			UnitPrice:       li.UnitPrice,
			TaxRate:         li.TaxRate,
			AmountObligated: li.AmountObligated,
			QtySettled:      li.QtySettled,
			AmountSettled:   li.AmountSettled,
			Status:          li.Status.String(),
		})
	}
	return DocumentResponse{
		ID:          d.ID,
		Type:        d.Type.String(),
		EntityID:    d.EntityID,
		IssueDate:   d.IssueDate,
		Total:       d.Total,
		TaxTotal:    d.TaxTotal,
		Currency:    d.Currency,
		Confidence:  d.Confidence,
		Status:      d.Status.String(),
		Outstanding: d.Outstanding(),
		Items:       items,
		CreatedAt:   d.CreatedAt,
	}
}

// ToDocumentResponses converts a slice of documents
func ToDocumentResponses(docs []ledger.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i := range docs {
		out[i] = ToDocumentResponse(&docs[i])
	}
	return out
}

// ToEntityResponses converts a slice of entities to snapshots
func ToEntityResponses(entities []partner.Entity) []partner.Snapshot {
	out := make([]partner.Snapshot, len(entities))
	for i := range entities {
		out[i] = entities[i].Snapshot()
	}
	return out
}

// AuditEntryResponse is one merit audit row, newest first in listings
type AuditEntryResponse struct {
	EntityID   string    `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	Change     int       `json:"change"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToAuditEntryResponses converts audit views
func ToAuditEntryResponses(views []partner.MeritAuditView) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(views))
	for i, v := range views {
		out[i] = AuditEntryResponse{
			EntityID:   v.EntityID,
			EntityName: v.EntityName,
			Change:     v.Change,
			Reason:     v.Reason,
			Timestamp:  v.Timestamp,
		}
	}
	return out
}

// SettlementResponse is one bucket consumption
type SettlementResponse struct {
	TargetDocumentID string          `json:"target_document_id"`
	BucketSeq        uint64          `json:"bucket_seq"`
	ItemName         string          `json:"item_name"`
	Quantity         decimal.Decimal `json:"quantity"`
	Amount           decimal.Decimal `json:"amount"`
}

// OrphanResponse is an unmatched remainder
type OrphanResponse struct {
	SourceDocumentID string          `json:"source_document_id"`
	EntityID         string          `json:"entity_id"`
	ItemName         string          `json:"item_name"`
	Quantity         decimal.Decimal `json:"quantity"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
	RecordedAt       time.Time       `json:"recorded_at"`
}

// ToOrphanResponse converts an orphan settlement
func ToOrphanResponse(o *ledger.OrphanSettlement) OrphanResponse {
	return OrphanResponse{
		SourceDocumentID: o.SourceDocumentID,
		EntityID:         o.EntityID,
		ItemName:         o.ItemName,
		Quantity:         o.Quantity,
		Amount:           o.Amount,
		Reason:           string(o.Reason),
		RecordedAt:       o.RecordedAt,
	}
}

// ToOrphanResponses converts a slice of orphan settlements
func ToOrphanResponses(orphans []ledger.OrphanSettlement) []OrphanResponse {
	out := make([]OrphanResponse, len(orphans))
	for i := range orphans {
		out[i] = ToOrphanResponse(&orphans[i])
	}
	return out
}

// AllocationResult is the outcome of one allocation
type AllocationResult struct {
	// Applied is false when the allocation key had already been applied
	Applied     bool                 `json:"applied"`
	Allocated   decimal.Decimal      `json:"allocated"`
	Unmatched   decimal.Decimal      `json:"unmatched"`
	Settlements []SettlementResponse `json:"settlements"`
	Orphan      *OrphanResponse      `json:"orphan,omitempty"`
}

// ReviewResponse is a parked document
type ReviewResponse struct {
	DocumentID    string    `json:"document_id"`
	DocumentType  string    `json:"document_type"`
	Queue         string    `json:"queue"`
	Reason        string    `json:"reason"`
	CandidateID   *string   `json:"candidate_id,omitempty"`
	CandidateName *string   `json:"candidate_name,omitempty"`
	StoredName    string    `json:"stored_name,omitempty"`
	Similarity    float64   `json:"similarity"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToReviewResponses converts review items
func ToReviewResponses(items []ledger.ReviewItem) []ReviewResponse {
	out := make([]ReviewResponse, len(items))
	for i, r := range items {
		out[i] = ReviewResponse{
			DocumentID:    r.DocumentID,
			DocumentType:  r.DocumentType.String(),
			Queue:         string(r.Queue),
			Reason:        r.Reason,
			CandidateID:   r.CandidateID,
			CandidateName: r.CandidateName,
			StoredName:    r.StoredName,
			Similarity:    r.Similarity,
			CreatedAt:     r.CreatedAt,
		}
	}
	return out
}

// IngestResult summarizes what happened to one document
type IngestResult struct {
	DocumentID     string                  `json:"document_id"`
	Classification string                  `json:"classification"`
	Reason         string                  `json:"reason"`
	EntityID       string                  `json:"entity_id,omitempty"`
	EntityCreated  bool                    `json:"entity_created"`
	Status         string                  `json:"status,omitempty"`
	Allocations    []AllocationResult      `json:"allocations,omitempty"`
	PriceDecisions []partner.PriceDecision `json:"price_decisions,omitempty"`
	Entity         *partner.Snapshot       `json:"entity,omitempty"`
}

// Accepted reports whether the document entered the ledger
func (r *IngestResult) Accepted() bool {
	return r.Classification == partner.ClassificationAccepted.String()
}

// DebtResponse is the recomputed balance for an entity
type DebtResponse struct {
	EntityID   string          `json:"entity_id"`
	Receivable decimal.Decimal `json:"receivable"`
	Payable    decimal.Decimal `json:"payable"`
	Net        decimal.Decimal `json:"net"`
}

// BatchItemResult is the outcome for one source file
type BatchItemResult struct {
	Key            string `json:"key"`
	DocumentID     string `json:"document_id,omitempty"`
	Classification string `json:"classification,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BatchReport summarizes a batch run
type BatchReport struct {
	Processed int               `json:"processed"`
	Accepted  int               `json:"accepted"`
	Reviewed  int               `json:"reviewed"`
	Failed    int               `json:"failed"`
	Entities  int               `json:"entities_recomputed"`
	Items     []BatchItemResult `json:"items"`
}
