// Package similarity provides name-similarity strategies for identity resolution.
// All strategies score on a 0-100 scale and compare case-folded, NFKC-normalized
// names with collapsed whitespace.
package similarity

import (
	"strings"

	"github.com/meritledger/backend/internal/domain/partner"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Strategy is a named similarity function
type Strategy interface {
	partner.Similarity
	Name() string
}

var folder = cases.Fold()

// Normalize prepares a name for comparison
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// ExactStrategy scores 100 for names equal after normalization and 0 otherwise
type ExactStrategy struct{}

// NewExactStrategy creates a new exact-match strategy
func NewExactStrategy() *ExactStrategy {
	return &ExactStrategy{}
}

// Name returns the strategy name
func (s *ExactStrategy) Name() string {
	return "exact"
}

// Score compares normalized names
func (s *ExactStrategy) Score(a, b string) float64 {
	if Normalize(a) == Normalize(b) {
		return 100
	}
	return 0
}

var _ Strategy = (*ExactStrategy)(nil)
