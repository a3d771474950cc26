package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/streakly/internal/achievements"
	"github.com/julianstephens/streakly/internal/constants"
	"github.com/julianstephens/streakly/internal/engine"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/eventbus"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/tui/components/board"
	"github.com/julianstephens/streakly/internal/validation"
)

type eventMsg eventbus.Event

type toggleDoneMsg struct {
	outcome engine.Outcome
	err     error
}

type habitAddedMsg struct {
	habit    models.Habit
	unlocked []achievements.Kind
	err      error
}

type habitDeactivatedMsg struct {
	id  string
	err error
}

func waitForEvent(events <-chan eventbus.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(evt)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.height = size.Height
		m.help.Width = size.Width
		m.board.SetSize(size.Width, max(size.Height-6, 1))
		return m, nil
	}

	switch msg := msg.(type) {
	case eventMsg:
		m.handleEvent(eventbus.Event(msg))
		return m, waitForEvent(m.events)
	case toggleDoneMsg:
		m.handleToggle(msg)
		return m, nil
	case habitAddedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.banner = "Added " + msg.habit.Name
		m.announce(msg.unlocked)
		m.refresh()
		return m, nil
	case habitDeactivatedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.refresh()
		return m, nil
	}

	switch m.state {
	case StateAddHabit:
		return m.updateAddHabit(msg)
	case StateConfirmDeactivate:
		return m.updateConfirmDeactivate(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	switch msg := msg.(type) {
	case board.AddHabitMsg:
		m.habitForm = &HabitFormModel{Frequency: models.FrequencyDaily, Target: "1"}
		m.form = newHabitForm(m.habitForm)
		m.state = StateAddHabit
		return m, m.form.Init()
	case board.ToggleHabitMsg:
		return m, m.toggleCmd(msg.ID)
	case board.DeactivateHabitMsg:
		m.deactivate = msg
		m.state = StateConfirmDeactivate
		return m, nil
	}

	var cmd tea.Cmd
	m.board, cmd = m.board.Update(msg)
	return m, cmd
}

func (m *Model) handleEvent(evt eventbus.Event) {
	switch evt.Type {
	case eventbus.Optimistic, eventbus.Confirmed, eventbus.RolledBack:
		m.refresh()
	case eventbus.Points:
		m.points = evt.Total
	case eventbus.Achievement:
		if kind, err := achievements.ParseKind(evt.Kind); err == nil {
			m.announce([]achievements.Kind{kind})
		}
	}
}

func (m *Model) handleToggle(msg toggleDoneMsg) {
	m.refresh()
	if msg.err != nil {
		m.err = msg.err
		return
	}
	m.err = msg.outcome.SideEffectErr

	out := msg.outcome
	if out.Operation.Added {
		m.banner = fmt.Sprintf("+%d points", out.Award.Total)
	} else {
		m.banner = fmt.Sprintf("-%d points", out.Reversed)
	}
	if out.SideEffectErr == nil {
		m.points = out.TotalPoints
	}
	m.announce(out.Unlocked)
}

func (m *Model) announce(kinds []achievements.Kind) {
	kind, ok := achievements.First(kinds)
	if !ok {
		return
	}
	if def, ok := achievements.Lookup(kind); ok {
		m.banner = fmt.Sprintf("%s Achievement unlocked: %s", def.Icon, def.Name)
	}
}

func (m Model) toggleCmd(habitID string) tea.Cmd {
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		out, err := eng.ToggleToday(ctx, habitID)
		return toggleDoneMsg{outcome: out, err: err}
	}
}

func (m Model) updateAddHabit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = StateBoard
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.state = StateBoard
		return m, tea.Batch(cmd, m.addHabitCmd(*m.habitForm))
	case huh.StateAborted:
		m.state = StateBoard
	}
	return m, cmd
}

func (m Model) updateConfirmDeactivate(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		m.state = StateBoard
		return m, m.deactivateCmd(m.deactivate.ID)
	case key.Matches(keyMsg, m.keys.Cancel):
		m.state = StateBoard
	}
	return m, nil
}

func (m Model) addHabitCmd(fm HabitFormModel) tea.Cmd {
	ctx, eng, store := m.ctx, m.engine, m.store
	return func() tea.Msg {
		target := 1
		if fm.Frequency == models.FrequencyWeekly {
			n, err := strconv.Atoi(strings.TrimSpace(fm.Target))
			if err != nil {
				return habitAddedMsg{err: apperrors.Validation("add habit", "target must be a number")}
			}
			target = n
		}

		now := time.Now().UTC()
		habit := models.Habit{
			ID:          uuid.NewString(),
			UserID:      eng.UserID(),
			Name:        fm.Name,
			Description: fm.Description,
			Frequency:   fm.Frequency,
			Target:      target,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := validation.ValidateHabit(&habit); err != nil {
			return habitAddedMsg{err: err}
		}
		if existing, err := store.GetHabitByName(ctx, habit.UserID, habit.Name); err == nil && existing.Active {
			return habitAddedMsg{err: apperrors.Conflict("add habit", fmt.Errorf("a habit named %q already exists", habit.Name))}
		}
		if err := store.AddHabit(ctx, habit); err != nil {
			return habitAddedMsg{err: err}
		}
		if err := eng.Track(habit); err != nil {
			return habitAddedMsg{err: err}
		}
		unlocked, err := eng.EvaluateAchievements(ctx)
		return habitAddedMsg{habit: habit, unlocked: unlocked, err: err}
	}
}

func (m Model) deactivateCmd(habitID string) tea.Cmd {
	ctx, eng, store := m.ctx, m.engine, m.store
	return func() tea.Msg {
		if err := store.DeactivateHabit(ctx, habitID); err != nil {
			return habitDeactivatedMsg{id: habitID, err: err}
		}
		eng.Untrack(habitID)
		return habitDeactivatedMsg{id: habitID}
	}
}

func newHabitForm(fm *HabitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("habit name cannot be empty")
					}
					if len(s) > constants.HabitNameMax {
						return fmt.Errorf("habit name must be at most %d characters", constants.HabitNameMax)
					}
					return nil
				}),
			huh.NewInput().
				Title("Description").
				Value(&fm.Description),
			huh.NewSelect[models.Frequency]().
				Title("Frequency").
				Options(
					huh.NewOption("Daily", models.FrequencyDaily),
					huh.NewOption("Weekly", models.FrequencyWeekly),
				).
				Value(&fm.Frequency),
			huh.NewInput().
				Title("Times per week (weekly habits)").
				Value(&fm.Target).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 || n > constants.WeeklyFrequencyMax {
						return fmt.Errorf("enter a number from 1 to %d", constants.WeeklyFrequencyMax)
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}
