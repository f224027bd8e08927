package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObligationBucket tracks quantity owed against quantity fulfilled for one
// (document, item) pair. Seq is the insertion sequence and the only
// ordering key used by allocation.
type ObligationBucket struct {
	Seq          uint64
	DocumentID   string
	ItemName     string
	EntityID     string
	Side         BucketSide
	QtyTotal     decimal.Decimal
	QtyFulfilled decimal.Decimal
	UnitPrice    decimal.Decimal
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewObligationBucket opens a bucket for an invoice line
func NewObligationBucket(documentID, entityID string, side BucketSide, item *LineItem) *ObligationBucket {
	now := time.Now()
	b := &ObligationBucket{
		DocumentID:   documentID,
		ItemName:     item.Name,
		EntityID:     entityID,
		Side:         side,
		QtyTotal:     item.Quantity,
		QtyFulfilled: decimal.Zero,
		UnitPrice:    item.UnitPrice,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.Status = DeriveStatus(b.QtyFulfilled, b.QtyTotal)
	return b
}

// Remaining returns the quantity still expected, never negative
func (b *ObligationBucket) Remaining() decimal.Decimal {
	r := b.QtyTotal.Sub(b.QtyFulfilled)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// IsOpen reports whether the bucket can still receive fulfilment
func (b *ObligationBucket) IsOpen() bool {
	return b.Status.IsOpen()
}

// Fill consumes up to qty from the bucket and returns the quantity taken.
// Fulfilled never decreases and never passes the total.
func (b *ObligationBucket) Fill(qty decimal.Decimal) decimal.Decimal {
	if !qty.IsPositive() {
		return decimal.Zero
	}
	consumed := decimal.Min(qty, b.Remaining())
	if consumed.IsZero() {
		return decimal.Zero
	}
	b.QtyFulfilled = b.QtyFulfilled.Add(consumed)
	b.Status = DeriveStatus(b.QtyFulfilled, b.QtyTotal)
	b.UpdatedAt = time.Now()
	return consumed
}
