// Package streak derives current and longest streaks from completion dates.
//
// Every function takes the completion dates as an unordered slice of
// YYYY-MM-DD strings. Duplicates are collapsed and non-canonical strings are
// ignored. "today" is passed in by the caller so results are deterministic.
package streak

import (
	"sort"

	"github.com/julianstephens/streakly/internal/calendar"
	"github.com/julianstephens/streakly/internal/constants"
	"github.com/julianstephens/streakly/internal/models"
)

// Mode selects what a weekly streak counts.
type Mode int

const (
	// Weeks counts consecutive qualifying weeks.
	Weeks Mode = iota
	// Completions sums the completions recorded in those weeks.
	Completions
)

// Stats is the derived state shown for a habit.
type Stats struct {
	Current           int  `json:"current_streak"`
	Longest           int  `json:"longest_streak"`
	CompletedInPeriod bool `json:"completed_in_period"`
	WeekCount         int  `json:"week_count"`
}

// For derives the stats of a habit from its completion dates.
func For(habit models.Habit, dates []string, today string) Stats {
	weekCount := WeekCount(dates, today)
	if habit.IsWeekly() {
		return Stats{
			Current:           CurrentWeekly(dates, habit.Target, today, Weeks),
			Longest:           LongestWeekly(dates, habit.Target, Weeks),
			CompletedInPeriod: habit.Target > 0 && weekCount >= habit.Target,
			WeekCount:         weekCount,
		}
	}
	_, doneToday := dateSet(dates)[today]
	return Stats{
		Current:           CurrentDaily(dates, today),
		Longest:           LongestDaily(dates),
		CompletedInPeriod: doneToday,
		WeekCount:         weekCount,
	}
}

// CurrentDaily counts consecutive completed days ending today, or ending
// yesterday when today has no completion yet.
func CurrentDaily(dates []string, today string) int {
	set := dateSet(dates)
	if len(set) == 0 {
		return 0
	}

	anchor := today
	if _, ok := set[anchor]; !ok {
		anchor = calendar.ShiftDate(today, -1)
		if _, ok := set[anchor]; !ok {
			return 0
		}
	}

	count := 0
	for day := anchor; ; day = calendar.ShiftDate(day, -1) {
		if _, ok := set[day]; !ok {
			break
		}
		count++
	}
	return count
}

// LongestDaily returns the longest run of consecutive days in the history.
func LongestDaily(dates []string) int {
	sorted := sortedDates(dates)
	if len(sorted) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if calendar.DaysBetween(sorted[i-1], sorted[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// CurrentWeekly walks back from the current week (or the previous one if the
// current week has not qualified yet) while each week reaches target.
func CurrentWeekly(dates []string, target int, today string, mode Mode) int {
	if target <= 0 {
		return 0
	}
	buckets := weekBuckets(dates)

	week := calendar.WeekStart(today)
	if buckets[week] < target {
		week = calendar.ShiftDate(week, -constants.DaysPerWeek)
		if buckets[week] < target {
			return 0
		}
	}

	total := 0
	for buckets[week] >= target {
		total += weekValue(buckets[week], mode)
		week = calendar.ShiftDate(week, -constants.DaysPerWeek)
	}
	return total
}

// LongestWeekly returns the best run of back-to-back qualifying weeks.
func LongestWeekly(dates []string, target int, mode Mode) int {
	if target <= 0 {
		return 0
	}
	buckets := weekBuckets(dates)

	qualifying := make([]string, 0, len(buckets))
	for week, count := range buckets {
		if count >= target {
			qualifying = append(qualifying, week)
		}
	}
	if len(qualifying) == 0 {
		return 0
	}
	sort.Strings(qualifying)

	run := weekValue(buckets[qualifying[0]], mode)
	longest := run
	for i := 1; i < len(qualifying); i++ {
		value := weekValue(buckets[qualifying[i]], mode)
		if calendar.DaysBetween(qualifying[i-1], qualifying[i]) == constants.DaysPerWeek {
			run += value
		} else {
			run = value
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// WeekCount returns the number of completions in the week containing today.
func WeekCount(dates []string, today string) int {
	return weekBuckets(dates)[calendar.WeekStart(today)]
}

func weekValue(count int, mode Mode) int {
	if mode == Completions {
		return count
	}
	return 1
}

func dateSet(dates []string) map[string]struct{} {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		if calendar.ValidDate(d) {
			set[d] = struct{}{}
		}
	}
	return set
}

func sortedDates(dates []string) []string {
	set := dateSet(dates)
	sorted := make([]string, 0, len(set))
	for d := range set {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	return sorted
}

func weekBuckets(dates []string) map[string]int {
	buckets := make(map[string]int)
	for d := range dateSet(dates) {
		buckets[calendar.WeekStart(d)]++
	}
	return buckets
}
