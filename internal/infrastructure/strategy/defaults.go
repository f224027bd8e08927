package strategy

import (
	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/infrastructure/strategy/similarity"
)

// NewRegistryWithDefaults creates a registry with the built-in strategies.
// Levenshtein similarity and FIFO bucket allocation are the defaults.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	lev := similarity.NewLevenshteinStrategy()
	if err := r.RegisterSimilarityStrategy(lev); err != nil {
		return nil, err
	}
	if err := r.RegisterSimilarityStrategy(similarity.NewExactStrategy()); err != nil {
		return nil, err
	}

	fifo := ledger.NewFIFOAllocationStrategy()
	if err := r.RegisterAllocationStrategy(fifo); err != nil {
		return nil, err
	}

	if err := r.SetDefaultSimilarity(lev.Name()); err != nil {
		return nil, err
	}
	if err := r.SetDefaultAllocation(fifo.Name()); err != nil {
		return nil, err
	}
	return r, nil
}
