package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/streakly/internal/engine"
	"github.com/julianstephens/streakly/internal/eventbus"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/tui/components/board"
)

type SessionState int

const (
	StateBoard SessionState = iota
	StateAddHabit
	StateConfirmDeactivate
)

// Store is the part of the storage layer the board writes to directly.
type Store interface {
	AddHabit(ctx context.Context, habit models.Habit) error
	GetHabitByName(ctx context.Context, userID, name string) (models.Habit, error)
	DeactivateHabit(ctx context.Context, id string) error
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
}

type HabitFormModel struct {
	Name        string
	Description string
	Frequency   models.Frequency
	Target      string
}

type Model struct {
	ctx        context.Context
	engine     *engine.Engine
	store      Store
	events     <-chan eventbus.Event
	state      SessionState
	keys       KeyMap
	help       help.Model
	board      board.Model
	form       *huh.Form
	habitForm  *HabitFormModel
	deactivate board.DeactivateHabitMsg
	points     int
	banner     string
	err        error
	quitting   bool
	width      int
	height     int
}

// NewModel builds the board for eng. events may be nil.
func NewModel(ctx context.Context, eng *engine.Engine, store Store, events <-chan eventbus.Event) Model {
	m := Model{
		ctx:    ctx,
		engine: eng,
		store:  store,
		events: events,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		board:  board.New(eng.Snapshots(), eng.Today(), 0, 0),
	}
	if profile, err := store.GetProfile(ctx, eng.UserID()); err == nil {
		m.points = profile.TotalPoints
	} else {
		logger.Warn("failed to load profile", "user", eng.UserID(), "error", err)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// Run starts the board and blocks until the user quits or ctx ends.
func Run(ctx context.Context, eng *engine.Engine, store Store, hub *eventbus.Hub) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var events <-chan eventbus.Event
	if hub != nil {
		events = hub.Subscribe(subCtx, 64)
	}

	p := tea.NewProgram(NewModel(ctx, eng, store, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m *Model) refresh() {
	m.board.SetSnapshots(m.engine.Snapshots(), m.engine.Today())
}
