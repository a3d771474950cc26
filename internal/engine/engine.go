// Package engine owns the per-habit completion sets. It applies toggles
// optimistically, persists them through a Store and reconciles the local
// state with the store's answer.
package engine

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/streakly/internal/achievements"
	"github.com/julianstephens/streakly/internal/calendar"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/eventbus"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/metrics"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/streak"
)

// Store is the persistence boundary the engine writes through.
type Store interface {
	ListCompletions(ctx context.Context, habitID string) ([]models.Completion, error)
	InsertCompletion(ctx context.Context, habitID, userID, date string) (models.Completion, error)
	DeleteCompletion(ctx context.Context, habitID, date string) error
	AdjustPoints(ctx context.Context, entry models.PointEntry) (int, error)
	PointsAwarded(ctx context.Context, userID, habitID, date string) (int, error)
	ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error)
	RecordAchievementUnlock(ctx context.Context, userID, kind string) error
}

// Snapshot is a read-only copy of one habit's state.
type Snapshot struct {
	Habit       models.Habit        `json:"habit"`
	Completions []models.Completion `json:"completions"`
	Stats       streak.Stats        `json:"stats"`
	Pending     bool                `json:"pending"`
}

// Dates returns the completion dates in ascending order.
func (s Snapshot) Dates() []string {
	out := make([]string, len(s.Completions))
	for i, c := range s.Completions {
		out[i] = c.Date
	}
	return out
}

// Has reports whether date is in the completion set.
func (s Snapshot) Has(date string) bool {
	for _, c := range s.Completions {
		if c.Date == date {
			return true
		}
	}
	return false
}

type habitState struct {
	habit       models.Habit
	completions map[string]models.Completion
	// longest is the best streak observed since the habit was loaded.
	longest int
	pending bool
	// confirmed is the state before the in-flight toggle, nil when idle.
	confirmed *habitState
}

func newState(habit models.Habit, records []models.Completion, today string) *habitState {
	st := &habitState{
		habit:       habit,
		completions: make(map[string]models.Completion, len(records)),
	}
	for _, c := range records {
		st.completions[c.Date] = c
	}
	st.longest = st.stats(today).Longest
	return st
}

func (s *habitState) clone() *habitState {
	c := &habitState{
		habit:       s.habit,
		completions: make(map[string]models.Completion, len(s.completions)),
		longest:     s.longest,
		pending:     s.pending,
	}
	for d, rec := range s.completions {
		c.completions[d] = rec
	}
	return c
}

// settled returns the state the store has acknowledged.
func (s *habitState) settled() *habitState {
	if s.confirmed != nil {
		return s.confirmed
	}
	return s
}

func (s *habitState) dates() []string {
	out := make([]string, 0, len(s.completions))
	for d := range s.completions {
		out = append(out, d)
	}
	return out
}

func (s *habitState) stats(today string) streak.Stats {
	st := streak.For(s.habit, s.dates(), today)
	if s.longest > st.Longest {
		st.Longest = s.longest
	}
	return st
}

func (s *habitState) snapshot(today string) Snapshot {
	records := make([]models.Completion, 0, len(s.completions))
	for _, c := range s.completions {
		records = append(records, c)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return Snapshot{
		Habit:       s.habit,
		Completions: records,
		Stats:       s.stats(today),
		Pending:     s.pending,
	}
}

type Option func(*Engine)

// WithHub publishes engine events on h.
func WithHub(h *eventbus.Hub) Option {
	return func(e *Engine) { e.hub = h }
}

// WithMetrics records toggles, store latency, points and unlocks on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

type Engine struct {
	store   Store
	clock   calendar.Clock
	userID  string
	hub     *eventbus.Hub
	metrics *metrics.Metrics

	mu     sync.RWMutex
	habits map[string]*habitState
	slots  map[string]chan struct{}

	// evalMu serializes achievement evaluation and guards the unlocked set
	// together with mu.
	evalMu         sync.Mutex
	unlocked       map[achievements.Kind]bool
	unlockedLoaded bool
}

// New returns an engine acting for userID. clock defines "today".
func New(store Store, clock calendar.Clock, userID string, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		clock:    clock,
		userID:   userID,
		habits:   make(map[string]*habitState),
		slots:    make(map[string]chan struct{}),
		unlocked: make(map[achievements.Kind]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UserID returns the user the engine acts for.
func (e *Engine) UserID() string {
	return e.userID
}

// Clock returns the clock that defines the engine's "today".
func (e *Engine) Clock() calendar.Clock {
	return e.clock
}

// Today returns the current local date of the engine's clock.
func (e *Engine) Today() string {
	return calendar.Today(e.clock)
}

// Load replaces the engine state with habits and their stored completions.
// Completions and the unlocked achievements are fetched concurrently.
func (e *Engine) Load(ctx context.Context, habits []models.Habit) error {
	for _, h := range habits {
		if err := checkHabit("engine.load", h); err != nil {
			return err
		}
	}

	records := make([][]models.Completion, len(habits))
	var unlocked []models.Achievement

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range habits {
		g.Go(func() error {
			list, err := e.listCompletions(gctx, h.ID)
			if err != nil {
				return err
			}
			records[i] = list
			return nil
		})
	}
	g.Go(func() error {
		list, err := e.store.ListAchievements(gctx, e.userID)
		if err != nil {
			return apperrors.Classify("engine.load", err)
		}
		unlocked = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	today := e.Today()
	states := make(map[string]*habitState, len(habits))
	for i, h := range habits {
		states[h.ID] = newState(h, records[i], today)
	}

	e.evalMu.Lock()
	e.mu.Lock()
	e.habits = states
	e.unlocked = make(map[achievements.Kind]bool, len(unlocked))
	for _, a := range unlocked {
		if kind, err := achievements.ParseKind(a.Kind); err == nil {
			e.unlocked[kind] = true
		}
	}
	e.unlockedLoaded = true
	e.mu.Unlock()
	e.evalMu.Unlock()

	logger.Debug("engine loaded", "habits", len(habits), "achievements", len(unlocked))
	return nil
}

// Track starts tracking habit with an empty completion set, or refreshes the
// habit's metadata when it is already tracked.
func (e *Engine) Track(habit models.Habit) error {
	if err := checkHabit("engine.track", habit); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.habits[habit.ID]; ok {
		st.habit = habit
		return nil
	}
	e.habits[habit.ID] = newState(habit, nil, e.Today())
	return nil
}

// Untrack drops a habit from the engine, e.g. after deactivation. The
// habit's slot is released too unless a toggle holds it.
func (e *Engine) Untrack(habitID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.habits, habitID)
	if slot, ok := e.slots[habitID]; ok && len(slot) == 0 {
		delete(e.slots, habitID)
	}
}

// Tracked reports whether habitID is tracked.
func (e *Engine) Tracked(habitID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.habits[habitID]
	return ok
}

// Snapshot returns a copy of one habit's state.
func (e *Engine) Snapshot(habitID string) (Snapshot, error) {
	today := e.Today()
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.habits[habitID]
	if !ok {
		return Snapshot{}, apperrors.NotFound("engine.snapshot", "habit %q is not tracked", habitID)
	}
	return st.snapshot(today), nil
}

// Snapshots returns copies of every tracked habit, ordered by name.
func (e *Engine) Snapshots() []Snapshot {
	today := e.Today()
	e.mu.RLock()
	out := make([]Snapshot, 0, len(e.habits))
	for _, st := range e.habits {
		out = append(out, st.snapshot(today))
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Habit.Name == out[j].Habit.Name {
			return out[i].Habit.ID < out[j].Habit.ID
		}
		return out[i].Habit.Name < out[j].Habit.Name
	})
	return out
}

// Stats aggregates the tracked habits for achievement evaluation. Toggles
// still waiting on the store are not counted.
func (e *Engine) Stats() achievements.Stats {
	today := e.Today()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statsLocked(today)
}

// statsLocked counts streaks of daily habits only; weekly streaks count weeks.
func (e *Engine) statsLocked(today string) achievements.Stats {
	stats := achievements.Stats{TotalHabits: len(e.habits)}
	for _, live := range e.habits {
		st := live.settled()
		stats.TotalCompletions += len(st.completions)
		if st.habit.IsWeekly() {
			continue
		}
		if cur := st.stats(today).Current; cur > stats.MaxStreak {
			stats.MaxStreak = cur
		}
	}
	return stats
}

func (e *Engine) publish(evt eventbus.Event) {
	if evt.Time.IsZero() {
		evt.Time = e.clock.Now()
	}
	e.hub.Publish(evt)
}

func checkHabit(op string, h models.Habit) error {
	if h.ID == "" {
		return apperrors.Validation(op, "habit id is empty")
	}
	if h.IsWeekly() && h.Target <= 0 {
		return apperrors.Validation(op, "weekly habit %q needs a positive target, got %d", h.Name, h.Target)
	}
	return nil
}
