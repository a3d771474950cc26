package constants

const (
	// Points awarded per completion
	BaseCompletionPoints = 10
	// Extra points when the resulting streak lands on a milestone
	StreakBonusPoints = 5
	// A milestone is every StreakMilestone consecutive periods
	StreakMilestone = 7

	// Habit input limits
	HabitNameMax        = 100
	HabitDescriptionMax = 500
	WeeklyFrequencyMax  = 7
)
