package partner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPenaltyForStreak(t *testing.T) {
	tests := []struct {
		streak  int
		penalty int
	}{
		{0, 0},
		{1, -1},
		{2, -2},
		{3, -2},
		{4, -3},
		{5, -5},
		{9, -5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.penalty, PenaltyForStreak(tt.streak), "streak %d", tt.streak)
	}
}

func TestNextStreak(t *testing.T) {
	assert.Equal(t, 1, NextStreak(0, true))
	assert.Equal(t, 6, NextStreak(5, true))
	assert.Equal(t, 0, NextStreak(4, false))
	assert.Equal(t, 1, NextStreak(-2, true))
}

func TestEntity_RecordOutcome(t *testing.T) {
	t.Run("five consecutive errors cost thirteen points", func(t *testing.T) {
		e, err := NewEntity("V-1", "Vendor")
		require.NoError(t, err)

		var changes []int
		for i := 0; i < 5; i++ {
			entry, err := e.RecordOutcome(true)
			require.NoError(t, err)
			require.NotNil(t, entry)
			changes = append(changes, entry.Change)
		}

		assert.Equal(t, []int{-1, -2, -2, -3, -5}, changes)
		assert.Equal(t, 87, e.Merit)
		assert.Equal(t, 5, e.Streak)
	})

	t.Run("clean event resets silently", func(t *testing.T) {
		e, _ := NewEntity("V-2", "Vendor")
		_, _ = e.RecordOutcome(true)
		_, _ = e.RecordOutcome(true)
		e.ClearDomainEvents()

		entry, err := e.RecordOutcome(false)

		require.NoError(t, err)
		assert.Nil(t, entry)
		assert.Equal(t, 0, e.Streak)
		assert.Equal(t, 97, e.Merit)
		assert.Empty(t, e.GetDomainEvents())
	})

	t.Run("penalty restarts after a reset", func(t *testing.T) {
		e, _ := NewEntity("V-3", "Vendor")
		_, _ = e.RecordOutcome(true)
		_, _ = e.RecordOutcome(true)
		_, _ = e.RecordOutcome(false)

		entry, err := e.RecordOutcome(true)

		require.NoError(t, err)
		assert.Equal(t, -1, entry.Change)
		assert.Equal(t, "Administrative error (Streak 1)", entry.Reason)
	})
}
