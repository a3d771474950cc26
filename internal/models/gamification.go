package models

import "time"

type PointReason string

const (
	PointReasonCompletion  PointReason = "completion"
	PointReasonStreakBonus PointReason = "streak_bonus"
	PointReasonRetroactive PointReason = "retroactive"
	PointReasonReversal    PointReason = "reversal"
)

// Profile holds the per-user aggregates.
type Profile struct {
	UserID      string    `json:"user_id"`
	TotalPoints int       `json:"total_points"`
	Timezone    string    `json:"timezone,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PointEntry is one row of the points ledger. HabitID and Date tie the entry
// to the completion event that caused it.
type PointEntry struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	HabitID   string      `json:"habit_id"`
	Date      string      `json:"date"`
	Delta     int         `json:"delta"`
	Reason    PointReason `json:"reason"`
	CreatedAt time.Time   `json:"created_at"`
}

// Achievement is an unlock record. Kind maps to achievements.Kind.
type Achievement struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
