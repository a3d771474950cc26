package storage

import (
	"context"

	"github.com/julianstephens/streakly/internal/models"
)

// CompletionStore is the boundary the reconciliation engine persists
// through. Implementations return errors classified by internal/errors:
// a duplicate (habit, date) insert is a conflict, every other failure is
// unavailable.
type CompletionStore interface {
	ListCompletions(ctx context.Context, habitID string) ([]models.Completion, error)
	InsertCompletion(ctx context.Context, habitID, userID, date string) (models.Completion, error)
	// DeleteCompletion succeeds when nothing matched.
	DeleteCompletion(ctx context.Context, habitID, date string) error

	// AdjustPoints appends entry to the ledger and returns the user's new total.
	AdjustPoints(ctx context.Context, entry models.PointEntry) (int, error)
	// PointsAwarded returns the ledger net for one completion event.
	PointsAwarded(ctx context.Context, userID, habitID, date string) (int, error)

	ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error)
	// RecordAchievementUnlock is a no-op when the kind is already recorded.
	RecordAchievementUnlock(ctx context.Context, userID, kind string) error
}

type Provider interface {
	CompletionStore

	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Habits
	AddHabit(ctx context.Context, habit models.Habit) error
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	GetHabitByName(ctx context.Context, userID, name string) (models.Habit, error)
	ListHabits(ctx context.Context, userID string, includeInactive bool) ([]models.Habit, error)
	UpdateHabit(ctx context.Context, habit models.Habit) error
	DeactivateHabit(ctx context.Context, id string) error
	ReactivateHabit(ctx context.Context, id string) error

	// Profile
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	SetTimezone(ctx context.Context, userID, timezone string) error

	// Utils
	Kind() string
	Path() string
}
