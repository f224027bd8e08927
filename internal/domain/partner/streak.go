package partner

import "fmt"

// MaxStreakState is the saturation point of the streak penalty schedule.
// The counter itself keeps growing; penalties stop escalating here.
const MaxStreakState = 5

// PenaltyForStreak returns the merit penalty for reaching the given streak.
//
//	streak:  1   2   3   4   5+
//	penalty: -1  -2  -2  -3  -5
func PenaltyForStreak(streak int) int {
	switch {
	case streak <= 0:
		return 0
	case streak == 1:
		return -1
	case streak <= 3:
		return -2
	case streak == 4:
		return -3
	default:
		return -5
	}
}

// NextStreak is the counter transition: errors increment, clean events reset to zero
func NextStreak(current int, errorOccurred bool) int {
	if !errorOccurred {
		return 0
	}
	if current < 0 {
		current = 0
	}
	return current + 1
}

// StreakReason is the audit reason recorded with a streak penalty
func StreakReason(streak int) string {
	return fmt.Sprintf("Administrative error (Streak %d)", streak)
}
