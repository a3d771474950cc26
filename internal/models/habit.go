package models

import "time"

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Habit represents a recurring practice to track
type Habit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Frequency   Frequency `json:"frequency"`
	Target      int       `json:"target"` // completions per week, weekly habits only
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsWeekly reports whether the habit is tracked against a weekly target.
func (h Habit) IsWeekly() bool {
	return h.Frequency == FrequencyWeekly
}

// Completion marks a habit as done on one calendar date.
type Completion struct {
	ID          string    `json:"id"`
	HabitID     string    `json:"habit_id"`
	UserID      string    `json:"user_id"`
	Date        string    `json:"date"` // YYYY-MM-DD format, user's local calendar
	CompletedAt time.Time `json:"completed_at"`
}
