// Package memory is a process-local store. It backs tests and the "memory:"
// DSN, and can inject failures or block calls per operation.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/models"
)

// Operation names accepted by SetFault, SetHook and Calls.
const (
	OpListCompletions  = "list_completions"
	OpInsertCompletion = "insert_completion"
	OpDeleteCompletion = "delete_completion"
	OpAdjustPoints     = "adjust_points"
	OpPointsAwarded    = "points_awarded"
	OpListAchievements = "list_achievements"
	OpRecordUnlock     = "record_achievement_unlock"
)

type Store struct {
	mu           sync.Mutex
	habits       map[string]models.Habit
	completions  map[string]map[string]models.Completion
	ledger       []models.PointEntry
	profiles     map[string]models.Profile
	achievements map[string]map[string]models.Achievement

	faults map[string]error
	hook   func(op string)
	calls  map[string]int
	now    func() time.Time
}

func New() *Store {
	return &Store{
		habits:       make(map[string]models.Habit),
		completions:  make(map[string]map[string]models.Completion),
		profiles:     make(map[string]models.Profile),
		achievements: make(map[string]map[string]models.Achievement),
		faults:       make(map[string]error),
		calls:        make(map[string]int),
		now:          time.Now,
	}
}

// SetFault makes every call to op fail with err until cleared with a nil err.
func (s *Store) SetFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// SetHook installs fn to run at the start of every boundary call, outside the
// store lock. Tests use it to hold a call in flight.
func (s *Store) SetHook(fn func(op string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// SeedCompletion stores a completion directly, bypassing hooks and faults.
func (s *Store) SeedCompletion(c models.Completion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = s.now().UTC()
	}
	if s.completions[c.HabitID] == nil {
		s.completions[c.HabitID] = make(map[string]models.Completion)
	}
	s.completions[c.HabitID][c.Date] = c
}

// Ledger returns a copy of every point entry recorded so far.
func (s *Store) Ledger() []models.PointEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PointEntry, len(s.ledger))
	copy(out, s.ledger)
	return out
}

// enter runs the hook, counts the call and returns the injected fault.
func (s *Store) enter(ctx context.Context, op string) error {
	s.mu.Lock()
	hook := s.hook
	s.calls[op]++
	s.mu.Unlock()

	if hook != nil {
		hook(op)
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.faults[op]; err != nil {
		return apperrors.Classify(op, err)
	}
	return nil
}

func (s *Store) Init(context.Context) error { return nil }
func (s *Store) Load(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }
func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Kind() string               { return "memory" }
func (s *Store) Path() string               { return "" }

func (s *Store) AddHabit(_ context.Context, habit models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if habit.ID == "" {
		return apperrors.Validation("add habit", "habit id is required")
	}
	if _, ok := s.habits[habit.ID]; ok {
		return apperrors.Conflict("add habit", apperrors.New("habit "+habit.ID+" already exists"))
	}
	s.habits[habit.ID] = habit
	return nil
}

func (s *Store) GetHabit(_ context.Context, id string) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok {
		return models.Habit{}, apperrors.NotFound("get habit", "habit %q", id)
	}
	return h, nil
}

func (s *Store) GetHabitByName(_ context.Context, userID, name string) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var match *models.Habit
	for _, h := range s.habits {
		if h.UserID != userID || !strings.EqualFold(h.Name, name) {
			continue
		}
		h := h
		// Prefer an active habit over a deactivated one with the same name.
		if match == nil || (!match.Active && h.Active) {
			match = &h
		}
	}
	if match == nil {
		return models.Habit{}, apperrors.NotFound("get habit", "habit %q", name)
	}
	return *match, nil
}

func (s *Store) ListHabits(_ context.Context, userID string, includeInactive bool) ([]models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	habits := []models.Habit{}
	for _, h := range s.habits {
		if h.UserID != userID || (!includeInactive && !h.Active) {
			continue
		}
		habits = append(habits, h)
	}
	sort.Slice(habits, func(i, j int) bool {
		if habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].ID < habits[j].ID
		}
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})
	return habits, nil
}

func (s *Store) UpdateHabit(_ context.Context, habit models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.habits[habit.ID]; !ok {
		return apperrors.NotFound("update habit", "habit %q", habit.ID)
	}
	s.habits[habit.ID] = habit
	return nil
}

func (s *Store) DeactivateHabit(ctx context.Context, id string) error {
	return s.setActive(id, false)
}

func (s *Store) ReactivateHabit(ctx context.Context, id string) error {
	return s.setActive(id, true)
}

func (s *Store) setActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok || h.Active == active {
		state := "active"
		if !active {
			state = "inactive"
		}
		return apperrors.NotFound("set habit state", "habit %q not found or already %s", id, state)
	}
	h.Active = active
	h.UpdatedAt = s.now().UTC()
	s.habits[id] = h
	return nil
}

func (s *Store) ListCompletions(ctx context.Context, habitID string) ([]models.Completion, error) {
	if err := s.enter(ctx, OpListCompletions); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Completion, 0, len(s.completions[habitID]))
	for _, c := range s.completions[habitID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Store) InsertCompletion(ctx context.Context, habitID, userID, date string) (models.Completion, error) {
	if err := s.enter(ctx, OpInsertCompletion); err != nil {
		return models.Completion{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.completions[habitID][date]; exists {
		return models.Completion{}, apperrors.Conflict(OpInsertCompletion,
			apperrors.New("completion for "+habitID+" on "+date+" already exists"))
	}
	c := models.Completion{
		ID:          uuid.NewString(),
		HabitID:     habitID,
		UserID:      userID,
		Date:        date,
		CompletedAt: s.now().UTC(),
	}
	if s.completions[habitID] == nil {
		s.completions[habitID] = make(map[string]models.Completion)
	}
	s.completions[habitID][date] = c
	return c, nil
}

func (s *Store) DeleteCompletion(ctx context.Context, habitID, date string) error {
	if err := s.enter(ctx, OpDeleteCompletion); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.completions[habitID], date)
	return nil
}

func (s *Store) AdjustPoints(ctx context.Context, entry models.PointEntry) (int, error) {
	if err := s.enter(ctx, OpAdjustPoints); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	s.ledger = append(s.ledger, entry)

	p := s.profiles[entry.UserID]
	p.UserID = entry.UserID
	p.TotalPoints += entry.Delta
	p.UpdatedAt = entry.CreatedAt
	s.profiles[entry.UserID] = p
	return p.TotalPoints, nil
}

func (s *Store) PointsAwarded(ctx context.Context, userID, habitID, date string) (int, error) {
	if err := s.enter(ctx, OpPointsAwarded); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	net := 0
	for _, e := range s.ledger {
		if e.UserID == userID && e.HabitID == habitID && e.Date == date {
			net += e.Delta
		}
	}
	return net, nil
}

func (s *Store) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	if err := s.enter(ctx, OpListAchievements); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Achievement, 0, len(s.achievements[userID]))
	for _, a := range s.achievements[userID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].Kind < out[j].Kind
		}
		return out[i].UnlockedAt.Before(out[j].UnlockedAt)
	})
	return out, nil
}

func (s *Store) RecordAchievementUnlock(ctx context.Context, userID, kind string) error {
	if err := s.enter(ctx, OpRecordUnlock); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.achievements[userID] == nil {
		s.achievements[userID] = make(map[string]models.Achievement)
	}
	if _, ok := s.achievements[userID][kind]; ok {
		return nil
	}
	s.achievements[userID][kind] = models.Achievement{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       kind,
		UnlockedAt: s.now().UTC(),
	}
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return models.Profile{UserID: userID}, nil
	}
	return p, nil
}

func (s *Store) SetTimezone(_ context.Context, userID, timezone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[userID]
	p.UserID = userID
	p.Timezone = timezone
	p.UpdatedAt = s.now().UTC()
	s.profiles[userID] = p
	return nil
}
