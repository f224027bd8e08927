package ledger

import (
	"sort"

	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationStrategyType defines the type of allocation strategy
type AllocationStrategyType string

const (
	AllocationStrategyTypeFIFO AllocationStrategyType = "FIFO" // oldest bucket first by insertion sequence
)

// BucketFill is one planned consumption from a bucket
type BucketFill struct {
	Bucket      *ObligationBucket
	Quantity    decimal.Decimal
	FullyFilled bool
}

// AllocationPlan is the outcome of running a strategy over a set of buckets
type AllocationPlan struct {
	Fills     []BucketFill
	Allocated decimal.Decimal
	Remaining decimal.Decimal
}

// Apply fills the planned buckets and returns what each one actually took.
// Buckets that took nothing are left out. A plan is applied exactly once.
func (p *AllocationPlan) Apply() []BucketFill {
	applied := make([]BucketFill, 0, len(p.Fills))
	for _, f := range p.Fills {
		consumed := f.Bucket.Fill(f.Quantity)
		if consumed.IsZero() {
			continue
		}
		applied = append(applied, BucketFill{
			Bucket:      f.Bucket,
			Quantity:    consumed,
			FullyFilled: f.Bucket.Status == StatusCompleted,
		})
	}
	return applied
}

// AllocationStrategy plans how an incoming quantity is spread over open buckets
type AllocationStrategy interface {
	Name() string
	StrategyType() AllocationStrategyType
	Plan(incoming decimal.Decimal, buckets []*ObligationBucket) (*AllocationPlan, error)
}

// FIFOAllocationStrategy consumes the oldest open bucket first. Ordering is
// by insertion sequence only; price and size never reorder buckets.
type FIFOAllocationStrategy struct{}

// NewFIFOAllocationStrategy creates a new FIFO allocation strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{}
}

// Name returns the strategy name
func (s *FIFOAllocationStrategy) Name() string {
	return "fifo_bucket_allocation"
}

// StrategyType returns the allocation strategy type
func (s *FIFOAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyTypeFIFO
}

// Plan walks open buckets oldest-first taking min(incoming, remaining) from each
func (s *FIFOAllocationStrategy) Plan(incoming decimal.Decimal, buckets []*ObligationBucket) (*AllocationPlan, error) {
	if !incoming.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Allocation quantity must be positive")
	}

	ordered := make([]*ObligationBucket, 0, len(buckets))
	for _, b := range buckets {
		if b != nil && b.IsOpen() {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Seq < ordered[j].Seq
	})

	plan := &AllocationPlan{
		Fills:     make([]BucketFill, 0, len(ordered)),
		Allocated: decimal.Zero,
		Remaining: incoming,
	}

	for _, b := range ordered {
		if plan.Remaining.IsZero() {
			break
		}
		open := b.Remaining()
		if !open.IsPositive() {
			continue
		}
		take := decimal.Min(plan.Remaining, open)
		plan.Fills = append(plan.Fills, BucketFill{
			Bucket:      b,
			Quantity:    take,
			FullyFilled: take.Equal(open),
		})
		plan.Allocated = plan.Allocated.Add(take)
		plan.Remaining = plan.Remaining.Sub(take)
	}

	return plan, nil
}

var _ AllocationStrategy = (*FIFOAllocationStrategy)(nil)
