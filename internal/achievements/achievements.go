// Package achievements holds the milestone catalogue and decides which
// milestones a user has newly reached.
package achievements

import (
	"fmt"
	"strings"
)

// Kind identifies one milestone in the catalogue.
type Kind string

const (
	FirstHabit      Kind = "first_habit"
	Habits10        Kind = "habits_10"
	Streak7         Kind = "streak_7"
	Streak30        Kind = "streak_30"
	Streak100       Kind = "streak_100"
	Completions100  Kind = "completions_100"
	Completions500  Kind = "completions_500"
	Completions1000 Kind = "completions_1000"
)

// Stats are the aggregates the catalogue predicates look at.
type Stats struct {
	TotalHabits      int `json:"total_habits"`
	TotalCompletions int `json:"total_completions"`
	MaxStreak        int `json:"max_streak"`
}

// Definition describes a catalogue entry.
type Definition struct {
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	qualifies func(Stats) bool
}

// Qualifies reports whether s satisfies the entry's predicate.
func (d Definition) Qualifies(s Stats) bool {
	return d.qualifies != nil && d.qualifies(s)
}

// catalogue order is the tie-break order for notifications.
var catalogue = []Definition{
	{FirstHabit, "First Step", "Created your first habit", "🌱", func(s Stats) bool { return s.TotalHabits >= 1 }},
	{Habits10, "Habit Builder", "Created 10 habits", "📋", func(s Stats) bool { return s.TotalHabits >= 10 }},
	{Streak7, "Week Warrior", "Maintained a 7-day streak", "🔥", func(s Stats) bool { return s.MaxStreak >= 7 }},
	{Streak30, "Monthly Master", "Maintained a 30-day streak", "💪", func(s Stats) bool { return s.MaxStreak >= 30 }},
	{Streak100, "Century Club", "Maintained a 100-day streak", "🏆", func(s Stats) bool { return s.MaxStreak >= 100 }},
	{Completions100, "Centurion", "Completed habits 100 times", "⭐", func(s Stats) bool { return s.TotalCompletions >= 100 }},
	{Completions500, "Dedication", "Completed habits 500 times", "🌟", func(s Stats) bool { return s.TotalCompletions >= 500 }},
	{Completions1000, "Legendary", "Completed habits 1000 times", "👑", func(s Stats) bool { return s.TotalCompletions >= 1000 }},
}

// All returns the catalogue in evaluation order.
func All() []Definition {
	out := make([]Definition, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup returns the definition for kind.
func Lookup(kind Kind) (Definition, bool) {
	for _, d := range catalogue {
		if d.Kind == kind {
			return d, true
		}
	}
	return Definition{}, false
}

// ParseKind converts a stored kind string, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	if _, ok := Lookup(k); !ok {
		return "", fmt.Errorf("unknown achievement kind %q", s)
	}
	return k, nil
}

// Evaluate returns, in catalogue order, every kind whose predicate holds for
// stats and which is not already in unlocked.
func Evaluate(stats Stats, unlocked map[Kind]bool) []Kind {
	var out []Kind
	for _, d := range catalogue {
		if unlocked[d.Kind] {
			continue
		}
		if d.Qualifies(stats) {
			out = append(out, d.Kind)
		}
	}
	return out
}

// First returns the kind a single notification should announce.
func First(kinds []Kind) (Kind, bool) {
	if len(kinds) == 0 {
		return "", false
	}
	return kinds[0], true
}

// Set builds an unlocked-set from a list of kinds.
func Set(kinds ...Kind) map[Kind]bool {
	set := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return set
}
