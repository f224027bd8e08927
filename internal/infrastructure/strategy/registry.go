package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/meritledger/backend/internal/domain/ledger"
	"github.com/meritledger/backend/internal/domain/shared"
	"github.com/meritledger/backend/internal/infrastructure/strategy/similarity"
)

// StrategyRegistry manages strategy registrations
type StrategyRegistry struct {
	mu                   sync.RWMutex
	similarityStrategies map[string]similarity.Strategy
	allocationStrategies map[string]ledger.AllocationStrategy
	defaultSimilarity    string
	defaultAllocation    string
}

// NewStrategyRegistry creates a new strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		similarityStrategies: make(map[string]similarity.Strategy),
		allocationStrategies: make(map[string]ledger.AllocationStrategy),
	}
}

// RegisterSimilarityStrategy registers a name-similarity strategy
func (r *StrategyRegistry) RegisterSimilarityStrategy(s similarity.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.similarityStrategies[name]; exists {
		return fmt.Errorf("%w: similarity strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.similarityStrategies[name] = s
	return nil
}

// GetSimilarityStrategy returns a similarity strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetSimilarityStrategy(name string) (similarity.Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultSimilarity
		if name == "" {
			return nil, fmt.Errorf("%w: no default similarity strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.similarityStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: similarity strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// ListSimilarityStrategies returns all registered similarity strategy names
func (r *StrategyRegistry) ListSimilarityStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.similarityStrategies))
	for name := range r.similarityStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterAllocationStrategy registers a bucket allocation strategy
func (r *StrategyRegistry) RegisterAllocationStrategy(s ledger.AllocationStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.allocationStrategies[name]; exists {
		return fmt.Errorf("%w: allocation strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.allocationStrategies[name] = s
	return nil
}

// GetAllocationStrategy returns an allocation strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetAllocationStrategy(name string) (ledger.AllocationStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultAllocation
		if name == "" {
			return nil, fmt.Errorf("%w: no default allocation strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.allocationStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: allocation strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// ListAllocationStrategies returns all registered allocation strategy names
func (r *StrategyRegistry) ListAllocationStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.allocationStrategies))
	for name := range r.allocationStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefaultSimilarity sets the default similarity strategy
func (r *StrategyRegistry) SetDefaultSimilarity(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.similarityStrategies[name]; !exists {
		return fmt.Errorf("%w: similarity strategy '%s' not found", shared.ErrNotFound, name)
	}
	r.defaultSimilarity = name
	return nil
}

// SetDefaultAllocation sets the default allocation strategy
func (r *StrategyRegistry) SetDefaultAllocation(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.allocationStrategies[name]; !exists {
		return fmt.Errorf("%w: allocation strategy '%s' not found", shared.ErrNotFound, name)
	}
	r.defaultAllocation = name
	return nil
}
