package streak

import (
	"testing"

	"github.com/julianstephens/streakly/internal/calendar"
	"github.com/julianstephens/streakly/internal/models"
)

// Wednesday; its week starts on 2024-06-10.
const today = "2024-06-12"

func daysBack(offsets ...int) []string {
	out := make([]string, len(offsets))
	for i, o := range offsets {
		out[i] = calendar.ShiftDate(today, -o)
	}
	return out
}

func run(from, length int) []string {
	out := make([]string, length)
	for i := 0; i < length; i++ {
		out[i] = calendar.ShiftDate(today, -(from + i))
	}
	return out
}

func TestCurrentDaily(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{"empty", nil, 0},
		{"only today", daysBack(0), 1},
		{"only yesterday", daysBack(1), 1},
		{"neither today nor yesterday", daysBack(2, 3, 4), 0},
		{"three days ending today", daysBack(0, 1, 2), 3},
		{"chain anchored at yesterday", daysBack(1, 2, 3), 3},
		{"gap stops the walk", daysBack(0, 1, 3, 4, 5), 2},
		{"duplicates collapse", []string{today, today, calendar.ShiftDate(today, -1)}, 2},
		{"order is irrelevant", daysBack(2, 0, 1), 3},
		{"invalid strings ignored", append(daysBack(0), "garbage", "2024-6-11"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurrentDaily(tt.dates, today); got != tt.want {
				t.Errorf("CurrentDaily() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCurrentDailyEqualsRunLength(t *testing.T) {
	for n := 1; n <= 40; n++ {
		dates := run(0, n)
		if got := CurrentDaily(dates, today); got != n {
			t.Fatalf("CurrentDaily() over %d consecutive days = %d", n, got)
		}

		// Omitting any earlier day caps the streak at the unbroken suffix.
		for gap := 1; gap < n; gap++ {
			broken := make([]string, 0, n-1)
			for i, d := range dates {
				if i != gap {
					broken = append(broken, d)
				}
			}
			if got := CurrentDaily(broken, today); got != gap {
				t.Fatalf("run of %d with day %d missing: CurrentDaily() = %d, want %d", n, gap, got, gap)
			}
		}
	}
}

func TestCurrentDailyZeroWithoutRecentAnchor(t *testing.T) {
	for start := 2; start < 30; start++ {
		dates := run(start, 5)
		if got := CurrentDaily(dates, today); got != 0 {
			t.Fatalf("run starting %d days ago: CurrentDaily() = %d, want 0", start, got)
		}
	}
}

func TestLongestDaily(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{"empty", nil, 0},
		{"single", daysBack(10), 1},
		{"two separate runs", append(run(0, 2), run(5, 4)...), 4},
		{"across month boundary", []string{"2024-01-30", "2024-01-31", "2024-02-01"}, 3},
		{"across leap day", []string{"2024-02-28", "2024-02-29", "2024-03-01"}, 3},
		{"duplicates collapse", []string{"2024-01-01", "2024-01-01", "2024-01-02"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LongestDaily(tt.dates); got != tt.want {
				t.Errorf("LongestDaily() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLongestAtLeastCurrent(t *testing.T) {
	histories := [][]string{
		run(0, 5),
		append(run(0, 3), run(10, 8)...),
		append(run(1, 9), run(20, 2)...),
		daysBack(0, 2, 4, 6),
	}
	for i, dates := range histories {
		current := CurrentDaily(dates, today)
		longest := LongestDaily(dates)
		if longest < current {
			t.Errorf("history %d: longest %d < current %d", i, longest, current)
		}
	}

	single := run(0, 12)
	if CurrentDaily(single, today) != LongestDaily(single) {
		t.Error("one unbroken run ending today should have longest == current")
	}
}

func TestStreakScenarioRemoveMiddleDay(t *testing.T) {
	dates := daysBack(0, 1, 2)
	if got := CurrentDaily(dates, today); got != 3 {
		t.Fatalf("current = %d, want 3", got)
	}
	if got := LongestDaily(dates); got != 3 {
		t.Fatalf("longest = %d, want 3", got)
	}

	// Removing T-1 breaks the chain. The longest value reported for the
	// remaining history is 1, but the habit's recorded best stays at 3 in the
	// engine, which keeps the maximum ever observed.
	dates = daysBack(0, 2)
	if got := CurrentDaily(dates, today); got != 1 {
		t.Errorf("current after removal = %d, want 1", got)
	}
}

func TestWeeklyQualification(t *testing.T) {
	// Mon, Tue, Wed of the current week.
	week := []string{"2024-06-10", "2024-06-11", "2024-06-12"}

	if got := CurrentWeekly(week, 3, today, Weeks); got != 1 {
		t.Errorf("3 completions with target 3: got %d, want 1", got)
	}
	if got := CurrentWeekly(week[:2], 3, today, Weeks); got != 0 {
		t.Errorf("2 completions with target 3: got %d, want 0", got)
	}

	// A 4th completion in the same week does not add a week.
	more := append(append([]string{}, week...), "2024-06-09") // Sunday belongs to previous week
	more = append(more, "2024-06-13")
	if got := CurrentWeekly(more, 3, "2024-06-13", Weeks); got != 1 {
		t.Errorf("4 completions in one week: got %d, want 1", got)
	}
	if got := CurrentWeekly(more, 3, "2024-06-13", Completions); got != 4 {
		t.Errorf("completions mode: got %d, want 4", got)
	}
}

func TestWeeklyTwoConsecutiveWeeks(t *testing.T) {
	dates := []string{
		// previous week: 2 completions
		"2024-06-03", "2024-06-05",
		// current week: 3 completions
		"2024-06-10", "2024-06-11", "2024-06-12",
	}

	if got := CurrentWeekly(dates, 2, today, Weeks); got != 2 {
		t.Errorf("weeks mode = %d, want 2", got)
	}
	if got := CurrentWeekly(dates, 2, today, Completions); got != 5 {
		t.Errorf("completions mode = %d, want 5", got)
	}
	if got := LongestWeekly(dates, 2, Weeks); got != 2 {
		t.Errorf("longest weeks = %d, want 2", got)
	}
	if got := LongestWeekly(dates, 2, Completions); got != 5 {
		t.Errorf("longest completions = %d, want 5", got)
	}
}

func TestWeeklyFallsBackToPreviousWeek(t *testing.T) {
	dates := []string{
		"2024-05-27", "2024-05-28", // two weeks ago
		"2024-06-03", "2024-06-04", // last week
		"2024-06-10", // current week, not yet qualified
	}
	if got := CurrentWeekly(dates, 2, today, Weeks); got != 2 {
		t.Errorf("CurrentWeekly() = %d, want 2", got)
	}

	stale := []string{"2024-05-27", "2024-05-28"}
	if got := CurrentWeekly(stale, 2, today, Weeks); got != 0 {
		t.Errorf("CurrentWeekly() with only stale weeks = %d, want 0", got)
	}
}

func TestLongestWeeklyResetsOnGap(t *testing.T) {
	dates := []string{
		"2024-04-01", "2024-04-08", "2024-04-15", // three consecutive weeks
		"2024-05-06", // gap, then one week
	}
	if got := LongestWeekly(dates, 1, Weeks); got != 3 {
		t.Errorf("LongestWeekly() = %d, want 3", got)
	}
}

func TestWeeklyDegenerateTargets(t *testing.T) {
	dates := []string{"2024-06-10", "2024-06-11"}
	for _, target := range []int{0, -1} {
		if got := CurrentWeekly(dates, target, today, Weeks); got != 0 {
			t.Errorf("CurrentWeekly(target=%d) = %d, want 0", target, got)
		}
		if got := LongestWeekly(dates, target, Completions); got != 0 {
			t.Errorf("LongestWeekly(target=%d) = %d, want 0", target, got)
		}
	}
	if got := CurrentWeekly(nil, 2, today, Weeks); got != 0 {
		t.Errorf("CurrentWeekly(empty) = %d, want 0", got)
	}
	if got := LongestWeekly(nil, 2, Weeks); got != 0 {
		t.Errorf("LongestWeekly(empty) = %d, want 0", got)
	}
}

func TestFor(t *testing.T) {
	daily := models.Habit{Frequency: models.FrequencyDaily, Target: 1}
	stats := For(daily, daysBack(0, 1, 2), today)
	if stats.Current != 3 || stats.Longest != 3 || !stats.CompletedInPeriod {
		t.Errorf("daily stats = %+v", stats)
	}
	if stats.WeekCount != 3 {
		t.Errorf("daily week count = %d, want 3", stats.WeekCount)
	}

	weekly := models.Habit{Frequency: models.FrequencyWeekly, Target: 3}
	stats = For(weekly, []string{"2024-06-10", "2024-06-11"}, today)
	if stats.CompletedInPeriod {
		t.Error("weekly habit should not be complete with 2/3")
	}
	if stats.WeekCount != 2 || stats.Current != 0 {
		t.Errorf("weekly stats = %+v", stats)
	}

	stats = For(weekly, []string{"2024-06-10", "2024-06-11", "2024-06-12"}, today)
	if !stats.CompletedInPeriod || stats.Current != 1 || stats.Longest != 1 {
		t.Errorf("weekly stats after third completion = %+v", stats)
	}
}
