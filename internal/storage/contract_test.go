package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/storage"
)

// providers returns every store the contract runs against. PostgreSQL runs
// only when STREAKLY_TEST_POSTGRES_URL is set, e.g.
// postgres://streakly@localhost:5432/streakly_test?sslmode=disable
func providers(t *testing.T) map[string]storage.Provider {
	t.Helper()
	out := map[string]storage.Provider{}

	sq, err := storage.Open(filepath.Join(t.TempDir(), "streakly.db"))
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	out["sqlite"] = sq

	mem, err := storage.Open(storage.MemoryDSN)
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	out["memory"] = mem

	if dsn := os.Getenv("STREAKLY_TEST_POSTGRES_URL"); dsn != "" {
		pg, err := storage.Open(dsn)
		if err != nil {
			t.Fatalf("Open(postgres) error = %v", err)
		}
		out["postgres"] = pg
	}
	return out
}

func newHabit(userID, name string, freq models.Frequency, target int) models.Habit {
	now := time.Now().UTC().Truncate(time.Second)
	return models.Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Frequency: freq,
		Target:    target,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProviderContract(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := p.Init(ctx); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			t.Cleanup(func() { p.Close() })
			if err := p.Ping(ctx); err != nil {
				t.Fatalf("Ping() error = %v", err)
			}

			// A fresh user id per run keeps a shared PostgreSQL database clean.
			user := "user-" + uuid.NewString()

			t.Run("habits", func(t *testing.T) { testHabits(t, p, user) })
			t.Run("completions", func(t *testing.T) { testCompletions(t, p, user) })
			t.Run("points", func(t *testing.T) { testPoints(t, p, user) })
			t.Run("achievements", func(t *testing.T) { testAchievements(t, p, user) })
		})
	}
}

func testHabits(t *testing.T, p storage.Provider, user string) {
	ctx := context.Background()
	read := newHabit(user, "Read", models.FrequencyDaily, 1)
	gym := newHabit(user, "Gym", models.FrequencyWeekly, 3)
	gym.CreatedAt = read.CreatedAt.Add(time.Second)

	for _, h := range []models.Habit{read, gym} {
		if err := p.AddHabit(ctx, h); err != nil {
			t.Fatalf("AddHabit(%s) error = %v", h.Name, err)
		}
	}
	if err := p.AddHabit(ctx, read); !apperrors.Is(err, apperrors.ErrConflict) {
		t.Errorf("duplicate AddHabit() error = %v, want conflict", err)
	}

	got, err := p.GetHabit(ctx, gym.ID)
	if err != nil {
		t.Fatalf("GetHabit() error = %v", err)
	}
	if got.Name != "Gym" || got.Frequency != models.FrequencyWeekly || got.Target != 3 || !got.Active {
		t.Errorf("GetHabit() = %+v", got)
	}

	byName, err := p.GetHabitByName(ctx, user, "read")
	if err != nil || byName.ID != read.ID {
		t.Errorf("GetHabitByName() = %+v, %v", byName, err)
	}
	if _, err := p.GetHabit(ctx, "missing"); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetHabit(missing) error = %v, want not found", err)
	}

	gym.Description = "three times a week"
	gym.Target = 4
	gym.UpdatedAt = gym.UpdatedAt.Add(time.Minute)
	if err := p.UpdateHabit(ctx, gym); err != nil {
		t.Fatalf("UpdateHabit() error = %v", err)
	}
	if got, _ := p.GetHabit(ctx, gym.ID); got.Target != 4 || got.Description != "three times a week" {
		t.Errorf("after update = %+v", got)
	}

	if err := p.DeactivateHabit(ctx, read.ID); err != nil {
		t.Fatalf("DeactivateHabit() error = %v", err)
	}
	if err := p.DeactivateHabit(ctx, read.ID); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second DeactivateHabit() error = %v, want not found", err)
	}

	active, err := p.ListHabits(ctx, user, false)
	if err != nil {
		t.Fatalf("ListHabits() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != gym.ID {
		t.Errorf("active habits = %+v", active)
	}
	all, _ := p.ListHabits(ctx, user, true)
	if len(all) != 2 || all[0].ID != read.ID {
		t.Errorf("all habits = %+v", all)
	}

	if err := p.ReactivateHabit(ctx, read.ID); err != nil {
		t.Fatalf("ReactivateHabit() error = %v", err)
	}
	if got, _ := p.GetHabit(ctx, read.ID); !got.Active {
		t.Error("habit still inactive after ReactivateHabit()")
	}
}

func testCompletions(t *testing.T, p storage.Provider, user string) {
	ctx := context.Background()
	h := newHabit(user, "Meditate", models.FrequencyDaily, 1)
	if err := p.AddHabit(ctx, h); err != nil {
		t.Fatal(err)
	}

	for _, date := range []string{"2024-06-12", "2024-06-10", "2024-06-11"} {
		c, err := p.InsertCompletion(ctx, h.ID, user, date)
		if err != nil {
			t.Fatalf("InsertCompletion(%s) error = %v", date, err)
		}
		if c.ID == "" || c.Date != date || c.CompletedAt.IsZero() {
			t.Errorf("InsertCompletion() = %+v", c)
		}
	}

	if _, err := p.InsertCompletion(ctx, h.ID, user, "2024-06-11"); !apperrors.Is(err, apperrors.ErrConflict) {
		t.Errorf("duplicate InsertCompletion() error = %v, want conflict", err)
	}

	list, err := p.ListCompletions(ctx, h.ID)
	if err != nil {
		t.Fatalf("ListCompletions() error = %v", err)
	}
	want := []string{"2024-06-10", "2024-06-11", "2024-06-12"}
	if len(list) != len(want) {
		t.Fatalf("ListCompletions() returned %d rows, want %d", len(list), len(want))
	}
	for i, c := range list {
		if c.Date != want[i] {
			t.Errorf("completion %d date = %s, want %s", i, c.Date, want[i])
		}
	}

	if err := p.DeleteCompletion(ctx, h.ID, "2024-06-11"); err != nil {
		t.Fatalf("DeleteCompletion() error = %v", err)
	}
	if err := p.DeleteCompletion(ctx, h.ID, "2024-06-11"); err != nil {
		t.Errorf("DeleteCompletion() of missing row error = %v, want nil", err)
	}
	list, _ = p.ListCompletions(ctx, h.ID)
	if len(list) != 2 {
		t.Errorf("after delete %d completions, want 2", len(list))
	}

	if _, err := p.InsertCompletion(ctx, h.ID, user, "2024-06-11"); err != nil {
		t.Errorf("re-insert after delete error = %v", err)
	}
}

func testPoints(t *testing.T, p storage.Provider, user string) {
	ctx := context.Background()

	profile, err := p.GetProfile(ctx, user)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.TotalPoints != 0 {
		t.Errorf("fresh profile total = %d", profile.TotalPoints)
	}

	entries := []models.PointEntry{
		{UserID: user, HabitID: "h1", Date: "2024-06-12", Delta: 10, Reason: models.PointReasonCompletion},
		{UserID: user, HabitID: "h1", Date: "2024-06-12", Delta: 5, Reason: models.PointReasonStreakBonus},
		{UserID: user, HabitID: "h2", Date: "2024-06-12", Delta: 10, Reason: models.PointReasonCompletion},
	}
	var total int
	for _, e := range entries {
		if total, err = p.AdjustPoints(ctx, e); err != nil {
			t.Fatalf("AdjustPoints() error = %v", err)
		}
	}
	if total != 25 {
		t.Errorf("total = %d, want 25", total)
	}

	net, err := p.PointsAwarded(ctx, user, "h1", "2024-06-12")
	if err != nil || net != 15 {
		t.Errorf("PointsAwarded(h1) = %d, %v; want 15", net, err)
	}

	total, err = p.AdjustPoints(ctx, models.PointEntry{UserID: user, HabitID: "h1", Date: "2024-06-12", Delta: -15, Reason: models.PointReasonReversal})
	if err != nil || total != 10 {
		t.Errorf("reversal total = %d, %v; want 10", total, err)
	}
	if net, _ := p.PointsAwarded(ctx, user, "h1", "2024-06-12"); net != 0 {
		t.Errorf("net after reversal = %d, want 0", net)
	}
	if net, _ := p.PointsAwarded(ctx, user, "none", "2024-01-01"); net != 0 {
		t.Errorf("net for unknown event = %d, want 0", net)
	}

	if err := p.SetTimezone(ctx, user, "Europe/Berlin"); err != nil {
		t.Fatalf("SetTimezone() error = %v", err)
	}
	profile, _ = p.GetProfile(ctx, user)
	if profile.TotalPoints != 10 || profile.Timezone != "Europe/Berlin" {
		t.Errorf("profile = %+v", profile)
	}
}

func testAchievements(t *testing.T, p storage.Provider, user string) {
	ctx := context.Background()

	for _, kind := range []string{"first_habit", "streak_7", "first_habit"} {
		if err := p.RecordAchievementUnlock(ctx, user, kind); err != nil {
			t.Fatalf("RecordAchievementUnlock(%s) error = %v", kind, err)
		}
	}
	list, err := p.ListAchievements(ctx, user)
	if err != nil {
		t.Fatalf("ListAchievements() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListAchievements() = %+v, want 2 entries", list)
	}
	kinds := map[string]bool{}
	for _, a := range list {
		kinds[a.Kind] = true
		if a.UnlockedAt.IsZero() || a.UserID != user {
			t.Errorf("achievement = %+v", a)
		}
	}
	if !kinds["first_habit"] || !kinds["streak_7"] {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestSQLiteLoadRequiresInit(t *testing.T) {
	p, err := storage.Open(filepath.Join(t.TempDir(), "missing.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Load(context.Background()); err == nil {
		t.Error("Load() on missing database should fail")
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "streakly.db")

	first, _ := storage.Open(path)
	if err := first.Init(ctx); err != nil {
		t.Fatal(err)
	}
	h := newHabit("u", "Read", models.FrequencyDaily, 1)
	if err := first.AddHabit(ctx, h); err != nil {
		t.Fatal(err)
	}
	if _, err := first.InsertCompletion(ctx, h.ID, "u", "2024-06-12"); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, _ := storage.Open(path)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer second.Close()
	list, err := second.ListCompletions(ctx, h.ID)
	if err != nil || len(list) != 1 {
		t.Errorf("ListCompletions() after reopen = %v, %v", list, err)
	}
}
