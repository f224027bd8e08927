package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationKey is the natural key of an incoming settlement line.
// Replaying a key that was already applied must not change the ledger.
type AllocationKey struct {
	SourceDocumentID string
	ItemName         string
	Amount           decimal.Decimal
}

// AllocationRecord marks an AllocationKey as applied
type AllocationRecord struct {
	ID               uuid.UUID
	SourceDocumentID string
	ItemName         string
	Amount           decimal.Decimal
	EntityID         string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	Allocated        decimal.Decimal
	Unmatched        decimal.Decimal
	AppliedAt        time.Time
}

// NewAllocationRecord creates the applied marker for a key
func NewAllocationRecord(key AllocationKey, entityID string, quantity, unitPrice decimal.Decimal) *AllocationRecord {
	return &AllocationRecord{
		ID:               uuid.New(),
		SourceDocumentID: key.SourceDocumentID,
		ItemName:         key.ItemName,
		Amount:           key.Amount,
		EntityID:         entityID,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		Allocated:        decimal.Zero,
		Unmatched:        decimal.Zero,
		AppliedAt:        time.Now(),
	}
}

// Settlement mirrors one bucket consumption into the audit ledger
type Settlement struct {
	ID               uuid.UUID
	SourceDocumentID string
	TargetDocumentID string
	BucketSeq        uint64
	ItemName         string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	Amount           decimal.Decimal
	SettledAt        time.Time
}

// NewSettlement records qty consumed from bucket, valued at the incoming unit price
func NewSettlement(sourceDocumentID string, bucket *ObligationBucket, qty, unitPrice decimal.Decimal) *Settlement {
	return &Settlement{
		ID:               uuid.New(),
		SourceDocumentID: sourceDocumentID,
		TargetDocumentID: bucket.DocumentID,
		BucketSeq:        bucket.Seq,
		ItemName:         bucket.ItemName,
		Quantity:         qty,
		UnitPrice:        unitPrice,
		Amount:           qty.Mul(unitPrice),
		SettledAt:        time.Now(),
	}
}

// OrphanReason explains why a settlement could not be matched
type OrphanReason string

const (
	OrphanReasonNoOpenBucket OrphanReason = "no_open_bucket"
	OrphanReasonSurplus      OrphanReason = "surplus"
)

// OrphanSettlement is an incoming quantity with no open obligation to absorb it
type OrphanSettlement struct {
	ID               uuid.UUID
	SourceDocumentID string
	EntityID         string
	ItemName         string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	Amount           decimal.Decimal
	Reason           OrphanReason
	RecordedAt       time.Time
}

// NewOrphanSettlement records an unmatched remainder
func NewOrphanSettlement(sourceDocumentID, entityID, itemName string, qty, unitPrice decimal.Decimal, reason OrphanReason) *OrphanSettlement {
	return &OrphanSettlement{
		ID:               uuid.New(),
		SourceDocumentID: sourceDocumentID,
		EntityID:         entityID,
		ItemName:         itemName,
		Quantity:         qty,
		UnitPrice:        unitPrice,
		Amount:           qty.Mul(unitPrice),
		Reason:           reason,
		RecordedAt:       time.Now(),
	}
}
