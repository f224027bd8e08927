package reconciliation

import (
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/domain/shared"
)

const (
	// DefaultConfidenceThreshold is the extraction confidence below which a
	// document counts as an administrative error for the streak
	DefaultConfidenceThreshold = 90.0
	// DefaultDocumentReward is the merit granted per accepted document
	DefaultDocumentReward = 1

	DocumentRewardReason = "New document processed successfully"
)

// ErrBatchInProgress is returned when another process holds the batch lock
var ErrBatchInProgress = shared.NewDomainError("BATCH_IN_PROGRESS", "Another batch run is in progress")

// Settings holds the tunables of the reconciliation services
type Settings struct {
	ConfidenceThreshold float64
	DocumentReward      int
	// ScopeToEntity restricts allocation to the receipt's own entity
	ScopeToEntity bool
	PricePolicy   partner.PricePolicy
	// FallbackInflation is used when no inflation source is wired
	FallbackInflation float64
}

// DefaultSettings returns the stock reconciliation settings
func DefaultSettings() Settings {
	return Settings{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		DocumentReward:      DefaultDocumentReward,
		ScopeToEntity:       true,
		PricePolicy:         partner.DefaultPricePolicy(),
		FallbackInflation:   partner.DefaultInflationRate,
	}
}
