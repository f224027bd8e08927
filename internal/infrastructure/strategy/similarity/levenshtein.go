package similarity

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// LevenshteinStrategy scores names by edit-distance ratio, where a
// substitution costs two edits. Identical names score 100.
type LevenshteinStrategy struct {
	options levenshtein.Options
}

// NewLevenshteinStrategy creates a new Levenshtein ratio strategy
func NewLevenshteinStrategy() *LevenshteinStrategy {
	return &LevenshteinStrategy{options: levenshtein.DefaultOptions}
}

// Name returns the strategy name
func (s *LevenshteinStrategy) Name() string {
	return "levenshtein"
}

// Score returns the similarity ratio scaled to 0-100
func (s *LevenshteinStrategy) Score(a, b string) float64 {
	ra := []rune(Normalize(a))
	rb := []rune(Normalize(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 100
	}
	return levenshtein.RatioForStrings(ra, rb, s.options) * 100
}

// Distance returns the raw edit distance between normalized names
func (s *LevenshteinStrategy) Distance(a, b string) int {
	return levenshtein.DistanceForStrings([]rune(Normalize(a)), []rune(Normalize(b)), s.options)
}

var _ Strategy = (*LevenshteinStrategy)(nil)
