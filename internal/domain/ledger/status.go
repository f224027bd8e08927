package ledger

import "github.com/shopspring/decimal"

// Status is the tri-state completion marker shared by documents, line items and buckets
type Status string

const (
	StatusIncomplete Status = "Incomplete"
	StatusPartial    Status = "Partial"
	StatusCompleted  Status = "Completed"
)

// IsValid checks if the status is one of the three known values
func (s Status) IsValid() bool {
	return s == StatusIncomplete || s == StatusPartial || s == StatusCompleted
}

// IsOpen reports whether more settlement can still be applied
func (s Status) IsOpen() bool {
	return s != StatusCompleted
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// DeriveStatus classifies progress against a target: Completed once done
// reaches target, Partial after any progress, Incomplete otherwise.
func DeriveStatus(done, target decimal.Decimal) Status {
	switch {
	case done.GreaterThanOrEqual(target):
		return StatusCompleted
	case done.IsPositive():
		return StatusPartial
	default:
		return StatusIncomplete
	}
}

// RollupStatus derives a parent status from its children.
// A parent with no children has seen no activity and stays Incomplete.
func RollupStatus(children []Status) Status {
	if len(children) == 0 {
		return StatusIncomplete
	}
	remaining := 0
	touched := false
	for _, s := range children {
		if s != StatusCompleted {
			remaining++
		}
		if s == StatusCompleted || s == StatusPartial {
			touched = true
		}
	}
	switch {
	case remaining == 0:
		return StatusCompleted
	case touched:
		return StatusPartial
	default:
		return StatusIncomplete
	}
}
