package partner

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPricePolicy_Evaluate(t *testing.T) {
	policy := DefaultPricePolicy()

	t.Run("rejects hike above twice inflation", func(t *testing.T) {
		d := policy.Evaluate(decimal.NewFromInt(100), decimal.NewFromInt(120), 4.0)

		assert.False(t, d.Accepted)
		assert.Equal(t, -5, d.Penalty)
		assert.InDelta(t, 20.0, d.IncreasePct, 0.0001)
		assert.Equal(t, "Unfair price hike: 20.0% vs 4.0% inflation", d.Reason)
	})

	t.Run("accepts hike within bounds", func(t *testing.T) {
		d := policy.Evaluate(decimal.NewFromInt(100), decimal.NewFromInt(105), 4.0)

		assert.True(t, d.Accepted)
		assert.Zero(t, d.Penalty)
		assert.Equal(t, AcceptedPriceReason, d.Reason)
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		d := policy.Evaluate(decimal.NewFromInt(100), decimal.NewFromInt(108), 4.0)
		assert.True(t, d.Accepted)
	})

	t.Run("price drop is accepted", func(t *testing.T) {
		d := policy.Evaluate(decimal.NewFromInt(100), decimal.NewFromInt(90), 4.0)
		assert.True(t, d.Accepted)
		assert.InDelta(t, -10.0, d.IncreasePct, 0.0001)
	})

	t.Run("no prior price is accepted", func(t *testing.T) {
		d := policy.Evaluate(decimal.Zero, decimal.NewFromInt(500), 4.0)
		assert.True(t, d.Accepted)
		assert.Zero(t, d.IncreasePct)
	})

	t.Run("custom multiplier", func(t *testing.T) {
		strict := PricePolicy{Multiplier: 1, Penalty: -2}
		d := strict.Evaluate(decimal.NewFromInt(100), decimal.NewFromInt(105), 4.0)
		assert.False(t, d.Accepted)
		assert.Equal(t, -2, d.Penalty)
	})
}
