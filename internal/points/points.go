// Package points computes the award for a completion.
package points

import "github.com/julianstephens/streakly/internal/constants"

// Award is the breakdown of points granted for one completion.
type Award struct {
	Base  int `json:"base"`
	Bonus int `json:"bonus"`
	Total int `json:"total"`
}

// For returns the award for a completion that leaves the habit with a streak
// of resultingStreak. The milestone bonus applies on every positive multiple
// of constants.StreakMilestone.
func For(resultingStreak int) Award {
	a := Award{Base: constants.BaseCompletionPoints}
	if IsMilestone(resultingStreak) {
		a.Bonus = constants.StreakBonusPoints
	}
	a.Total = a.Base + a.Bonus
	return a
}

// Retroactive returns the award for a completion recorded on a past date.
// It never carries a bonus.
func Retroactive() Award {
	return Award{Base: constants.BaseCompletionPoints, Total: constants.BaseCompletionPoints}
}

// IsMilestone reports whether streak earns the bonus.
func IsMilestone(streak int) bool {
	return streak > 0 && streak%constants.StreakMilestone == 0
}
