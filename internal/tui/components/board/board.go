package board

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/streakly/internal/engine"
)

type AddHabitMsg struct{}

type ToggleHabitMsg struct {
	ID string
}

type DeactivateHabitMsg struct {
	ID   string
	Name string
}

type Item struct {
	Snapshot engine.Snapshot
	Today    string
}

func (i Item) Title() string {
	mark := "○ "
	if i.Snapshot.Has(i.Today) {
		mark = "✓ "
	}
	title := mark + i.Snapshot.Habit.Name
	if i.Snapshot.Pending {
		title += " …"
	}
	return title
}

func (i Item) Description() string {
	s := i.Snapshot.Stats
	h := i.Snapshot.Habit
	if h.IsWeekly() {
		return fmt.Sprintf("%d/%d this week · %d week streak · best %d", s.WeekCount, h.Target, s.Current, s.Longest)
	}
	return fmt.Sprintf("%d day streak · best %d", s.Current, s.Longest)
}

func (i Item) FilterValue() string { return i.Snapshot.Habit.Name }

type KeyMap struct {
	Toggle     key.Binding
	Add        key.Binding
	Deactivate key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "space", "enter"),
			key.WithHelp("space", "toggle today"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Deactivate: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "deactivate"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(snaps []engine.Snapshot, today string, width, height int) Model {
	l := list.New(items(snaps, today), list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Deactivate}
	}
	l.AdditionalFullHelpKeys = l.AdditionalShortHelpKeys

	return Model{list: l, keys: keys}
}

// SetSnapshots replaces the rows and keeps the cursor in range.
func (m *Model) SetSnapshots(snaps []engine.Snapshot, today string) {
	idx := m.list.Index()
	m.list.SetItems(items(snaps, today))
	if n := len(snaps); n > 0 && idx >= n {
		idx = n - 1
	}
	m.list.Select(idx)
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// Selected returns the highlighted habit.
func (m Model) Selected() (Item, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i, ok
}

func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Toggle):
			if i, ok := m.Selected(); ok {
				return m, func() tea.Msg { return ToggleHabitMsg{ID: i.Snapshot.Habit.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Deactivate):
			if i, ok := m.Selected(); ok {
				return m, func() tea.Msg {
					return DeactivateHabitMsg{ID: i.Snapshot.Habit.ID, Name: i.Snapshot.Habit.Name}
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "No habits yet. Press 'a' to add one."
	}
	return m.list.View()
}

func items(snaps []engine.Snapshot, today string) []list.Item {
	out := make([]list.Item, len(snaps))
	for i, s := range snaps {
		out[i] = Item{Snapshot: s, Today: today}
	}
	return out
}
