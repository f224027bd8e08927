package ledger

import (
	"time"

	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Document is an invoice or receipt header with its line items.
// Status is only ever written by RefreshStatus.
type Document struct {
	shared.BaseAggregateRoot
	ID         string
	Type       DocumentType
	EntityID   string
	IssueDate  *time.Time
	Total      decimal.Decimal
	TaxTotal   decimal.Decimal
	Currency   string
	Confidence *float64
	Status     Status
	LineItems  []LineItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDocument builds a document for a resolved entity. Lines sharing a name
// are coalesced so each (document, item) pair maps to a single bucket.
func NewDocument(in *IncomingDocument, entityID string) (*Document, error) {
	if in == nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Document record is required")
	}
	if entityID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidEntity, "Document must belong to an entity")
	}
	if !in.Type.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidDocumentType, "Unknown document type: "+in.Type.String())
	}

	now := time.Now()
	doc := &Document{
		ID:         in.ID,
		Type:       in.Type,
		EntityID:   entityID,
		IssueDate:  in.IssueDate,
		Total:      in.Total,
		TaxTotal:   in.TaxTotal,
		Currency:   in.Currency,
		Confidence: in.Confidence,
		LineItems:  make([]LineItem, 0, len(in.Items)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	index := make(map[string]int, len(in.Items))
	for _, it := range in.Items {
		li, err := NewLineItem(in.ID, it.Name, it.Quantity, it.UnitPrice, it.TaxRate)
		if err != nil {
			return nil, err
		}
		if pos, ok := index[it.Name]; ok {
			doc.LineItems[pos].merge(li)
			continue
		}
		index[it.Name] = len(doc.LineItems)
		doc.LineItems = append(doc.LineItems, *li)
	}

	doc.RefreshStatus()
	doc.AddDomainEvent(NewDocumentRecordedEvent(doc))
	return doc, nil
}

// Item returns the line item with the given name, or nil
func (d *Document) Item(name string) *LineItem {
	for i := range d.LineItems {
		if d.LineItems[i].Name == name {
			return &d.LineItems[i]
		}
	}
	return nil
}

// OpenBuckets returns one bucket per invoice line with something owed.
// Receipts open no buckets.
func (d *Document) OpenBuckets() []*ObligationBucket {
	side, ok := d.Type.BucketSide()
	if !ok {
		return nil
	}
	buckets := make([]*ObligationBucket, 0, len(d.LineItems))
	for i := range d.LineItems {
		li := &d.LineItems[i]
		if !li.AmountObligated.IsPositive() {
			continue
		}
		buckets = append(buckets, NewObligationBucket(d.ID, d.EntityID, side, li))
	}
	return buckets
}

// RefreshStatus recomputes the header status from the line items and
// reports whether it changed. Lines with nothing obligated carry no
// settlement activity and are left out.
func (d *Document) RefreshStatus() bool {
	children := make([]Status, 0, len(d.LineItems))
	for i := range d.LineItems {
		if !d.LineItems[i].AmountObligated.IsPositive() {
			continue
		}
		children = append(children, d.LineItems[i].Status)
	}
	next := RollupStatus(children)
	if next == d.Status {
		return false
	}
	d.Status = next
	d.UpdatedAt = time.Now()
	return true
}

// Outstanding sums obligated minus settled over every line
func (d *Document) Outstanding() decimal.Decimal {
	total := decimal.Zero
	for i := range d.LineItems {
		total = total.Add(d.LineItems[i].Outstanding())
	}
	return total
}
