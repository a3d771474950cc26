package calendar

import (
	"fmt"
	"time"

	"github.com/julianstephens/streakly/internal/constants"
)

// Clock supplies "now". The location of the returned time defines the
// user's local calendar.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant. Used in tests and replays.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// NewClock returns a SystemClock for the named timezone.
func NewClock(timezone string) (Clock, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return SystemClock{Location: loc}, nil
}

// LocalDateString formats t as YYYY-MM-DD in t's own location.
func LocalDateString(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// Today returns the clock's current local date.
func Today(c Clock) string {
	return LocalDateString(c.Now())
}

// IsToday reports whether date is the clock's current local date.
func IsToday(c Clock, date string) bool {
	return date == Today(c)
}

// DaysAgo returns the local date n days before today. n=0 is today.
func DaysAgo(c Clock, n int) string {
	return ShiftDate(Today(c), -n)
}

// PastDays returns today followed by the previous count-1 days, newest first.
func PastDays(c Clock, count int) []string {
	if count <= 0 {
		return []string{}
	}
	today := Today(c)
	days := make([]string, count)
	for i := 0; i < count; i++ {
		days[i] = ShiftDate(today, -i)
	}
	return days
}

// ParseDate parses a canonical YYYY-MM-DD string. The result is midnight UTC
// and is only meant for civil-date arithmetic.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", date, err)
	}
	return t, nil
}

// ValidDate reports whether date is a canonical YYYY-MM-DD string.
func ValidDate(date string) bool {
	_, err := ParseDate(date)
	return err == nil
}

// ShiftDate adds deltaDays calendar days to date. Invalid input is returned
// unchanged.
func ShiftDate(date string, deltaDays int) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, deltaDays).Format(constants.DateFormat)
}

// WeekStart returns the Monday of the week containing date. Sunday belongs to
// the week that started six days earlier. Invalid input is returned unchanged.
func WeekStart(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format(constants.DateFormat)
}

// DaysBetween returns to - from in whole days. Invalid input yields 0.
func DaysBetween(from, to string) int {
	a, err := ParseDate(from)
	if err != nil {
		return 0
	}
	b, err := ParseDate(to)
	if err != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

// IsWithinPastDays reports whether date is on or after today minus n days.
// Comparison is by calendar day, so any time of day counts the same.
func IsWithinPastDays(c Clock, date string, n int) bool {
	if !ValidDate(date) {
		return false
	}
	cutoff := DaysAgo(c, n)
	return date >= cutoff
}

// FormatShort renders a date for display, e.g. "Jan 15".
func FormatShort(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format(constants.ShortDateFormat)
}
