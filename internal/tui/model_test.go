package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/streakly/internal/calendar"
	"github.com/julianstephens/streakly/internal/engine"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/eventbus"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/storage/memory"
	"github.com/julianstephens/streakly/internal/tui/components/board"
)

const userID = "user-1"

func newTestModel(t *testing.T, habits ...models.Habit) (Model, *engine.Engine, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	for _, h := range habits {
		if err := store.AddHabit(ctx, h); err != nil {
			t.Fatalf("AddHabit() error = %v", err)
		}
	}
	clock := calendar.FixedClock{T: time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)}
	eng := engine.New(store, clock, userID)
	if err := eng.Load(ctx, habits); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	m := NewModel(ctx, eng, store, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), eng, store
}

func habit(id, name string) models.Habit {
	return models.Habit{ID: id, UserID: userID, Name: name, Frequency: models.FrequencyDaily, Target: 1, Active: true}
}

// drive feeds msg to the model and keeps running the returned commands until
// none produce a message.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for i := 0; msg != nil && i < 10; i++ {
		next, cmd := m.Update(msg)
		m = next.(Model)
		if cmd == nil {
			return m
		}
		msg = cmd()
	}
	return m
}

func TestToggleFromKeyAwardsPoints(t *testing.T) {
	m, eng, _ := newTestModel(t, habit("h1", "Read"))

	m = drive(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	snap, err := eng.Snapshot("h1")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !snap.Has(eng.Today()) {
		t.Fatal("expected today to be completed")
	}
	if m.points != 10 {
		t.Errorf("points = %d, want 10", m.points)
	}
	if !strings.Contains(m.banner, "First Step") {
		t.Errorf("banner = %q, want the first unlock", m.banner)
	}
	if !strings.Contains(m.View(), "✓ Read") {
		t.Error("board should show the habit as done")
	}
}

func TestToggleFailureShowsError(t *testing.T) {
	m, eng, store := newTestModel(t, habit("h1", "Read"))
	store.SetFault(memory.OpInsertCompletion, apperrors.New("disk full"))

	m = drive(t, m, board.ToggleHabitMsg{ID: "h1"})

	if m.err == nil {
		t.Fatal("expected an error")
	}
	snap, _ := eng.Snapshot("h1")
	if snap.Has(eng.Today()) {
		t.Error("failed toggle must be rolled back")
	}
	if m.points != 0 {
		t.Errorf("points = %d, want 0", m.points)
	}
}

func TestAddHabit(t *testing.T) {
	m, eng, _ := newTestModel(t, habit("h1", "Read"))

	next, _ := m.Update(board.AddHabitMsg{})
	m = next.(Model)
	if m.state != StateAddHabit || m.form == nil {
		t.Fatalf("state = %v, want the add form", m.state)
	}

	m.state = StateBoard
	m = drive(t, m, m.addHabitCmd(HabitFormModel{Name: "Run", Frequency: models.FrequencyWeekly, Target: "3"})())
	if m.err != nil {
		t.Fatalf("unexpected error: %v", m.err)
	}
	if m.board.Len() != 2 {
		t.Errorf("board has %d habits, want 2", m.board.Len())
	}
	if got := eng.Stats().TotalHabits; got != 2 {
		t.Errorf("tracked habits = %d, want 2", got)
	}

	m = drive(t, m, m.addHabitCmd(HabitFormModel{Name: "read", Frequency: models.FrequencyDaily, Target: "1"})())
	if !apperrors.Is(m.err, apperrors.ErrConflict) {
		t.Errorf("duplicate name error = %v, want conflict", m.err)
	}

	m = drive(t, m, m.addHabitCmd(HabitFormModel{Name: "Swim", Frequency: models.FrequencyWeekly, Target: "x"})())
	if !apperrors.Is(m.err, apperrors.ErrValidation) {
		t.Errorf("bad target error = %v, want validation", m.err)
	}
}

func TestDeactivateNeedsConfirmation(t *testing.T) {
	m, eng, store := newTestModel(t, habit("h1", "Read"), habit("h2", "Write"))

	m = drive(t, m, board.DeactivateHabitMsg{ID: "h1", Name: "Read"})
	if m.state != StateConfirmDeactivate {
		t.Fatalf("state = %v, want confirmation", m.state)
	}
	if !strings.Contains(m.View(), `Deactivate "Read"?`) {
		t.Error("confirmation dialog not rendered")
	}

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m.state != StateBoard || !eng.Tracked("h1") {
		t.Fatal("cancel should keep the habit")
	}

	m = drive(t, m, board.DeactivateHabitMsg{ID: "h1", Name: "Read"})
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if eng.Tracked("h1") {
		t.Error("habit should no longer be tracked")
	}
	if m.board.Len() != 1 {
		t.Errorf("board has %d habits, want 1", m.board.Len())
	}
	got, err := store.GetHabit(context.Background(), "h1")
	if err != nil || got.Active {
		t.Errorf("stored habit = %+v, %v; want inactive", got, err)
	}
}

func TestEventsUpdateHeader(t *testing.T) {
	m, _, _ := newTestModel(t, habit("h1", "Read"))

	m = drive(t, m, eventMsg(eventbus.Event{Type: eventbus.Points, Delta: 15, Total: 42}))
	if m.points != 42 {
		t.Errorf("points = %d, want 42", m.points)
	}
	if !strings.Contains(m.View(), "42 pts") {
		t.Error("header should show the new total")
	}

	m = drive(t, m, eventMsg(eventbus.Event{Type: eventbus.Achievement, Kind: "streak_7"}))
	if !strings.Contains(m.banner, "Week Warrior") {
		t.Errorf("banner = %q", m.banner)
	}

	m = drive(t, m, eventMsg(eventbus.Event{Type: eventbus.Achievement, Kind: "bogus"}))
	if !strings.Contains(m.banner, "Week Warrior") {
		t.Error("unknown kinds must not replace the banner")
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !next.(Model).quitting || cmd == nil {
		t.Fatal("q should quit")
	}
	if next.(Model).View() != "" {
		t.Error("view should be empty after quitting")
	}
}
