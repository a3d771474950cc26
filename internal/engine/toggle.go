package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/streakly/internal/achievements"
	"github.com/julianstephens/streakly/internal/calendar"
	"github.com/julianstephens/streakly/internal/constants"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/eventbus"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/points"
)

// Status is the lifecycle of one toggle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusRolledBack Status = "rolled_back"
)

// ProvisionalPrefix marks the id of a completion the store has not confirmed.
const ProvisionalPrefix = "provisional-"

// Operation records one toggle from its optimistic phase to its resolution.
type Operation struct {
	ID       string    `json:"id"`
	HabitID  string    `json:"habit_id"`
	Date     string    `json:"date"`
	Added    bool      `json:"added"`
	Status   Status    `json:"status"`
	IssuedAt time.Time `json:"issued_at"`
	Err      error     `json:"-"`
}

func (op Operation) action() string {
	if op.Added {
		return "add"
	}
	return "remove"
}

// Outcome is the result of a resolved toggle. The award and unlock fields are
// only set by the entry points with side effects.
type Outcome struct {
	Operation     Operation           `json:"operation"`
	Snapshot      Snapshot            `json:"snapshot"`
	Award         points.Award        `json:"award"`
	Reversed      int                 `json:"reversed,omitempty"`
	TotalPoints   int                 `json:"total_points,omitempty"`
	Unlocked      []achievements.Kind `json:"unlocked,omitempty"`
	SideEffectErr error               `json:"-"`
}

// effectFunc runs after a toggle is confirmed, still inside the habit's slot.
type effectFunc func(ctx context.Context, out *Outcome) error

// Toggle flips the completion of habitID on date. date must be today or one
// of the previous 7 days. Toggle awards nothing.
func (e *Engine) Toggle(ctx context.Context, habitID, date string) (Outcome, error) {
	return e.toggle(ctx, "engine.toggle", habitID, date, nil)
}

// ToggleToday flips today's completion. A confirmed add awards points for the
// resulting streak and evaluates achievements; a confirmed remove reverses
// the points awarded for that completion.
func (e *Engine) ToggleToday(ctx context.Context, habitID string) (Outcome, error) {
	return e.toggle(ctx, "engine.toggle_today", habitID, e.Today(), e.scoreToday)
}

// TogglePast flips the completion of a date strictly before today and within
// the retroactive window. A confirmed add awards base points only.
func (e *Engine) TogglePast(ctx context.Context, habitID, date string) (Outcome, error) {
	const op = "engine.toggle_past"
	if date == e.Today() {
		return Outcome{}, apperrors.Validation(op, "date %s is today, use ToggleToday", date)
	}
	return e.toggle(ctx, op, habitID, date, e.scorePast)
}

func (e *Engine) toggle(ctx context.Context, op, habitID, date string, effects effectFunc) (Outcome, error) {
	today := e.Today()
	if err := checkWindow(op, date, today); err != nil {
		e.metrics.ObserveToggle("", "rejected")
		return Outcome{}, err
	}
	if !e.Tracked(habitID) {
		return Outcome{}, apperrors.NotFound(op, "habit %q is not tracked", habitID)
	}

	release, err := e.acquire(ctx, op, habitID)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	now := e.clock.Now()
	e.mu.Lock()
	st, ok := e.habits[habitID]
	if !ok {
		e.mu.Unlock()
		return Outcome{}, apperrors.NotFound(op, "habit %q is not tracked", habitID)
	}
	before := st.clone()
	_, present := st.completions[date]
	oper := Operation{
		ID:       uuid.NewString(),
		HabitID:  habitID,
		Date:     date,
		Added:    !present,
		Status:   StatusPending,
		IssuedAt: now,
	}
	if present {
		delete(st.completions, date)
	} else {
		st.completions[date] = models.Completion{
			ID:          ProvisionalPrefix + oper.ID,
			HabitID:     habitID,
			UserID:      e.userID,
			Date:        date,
			CompletedAt: now.UTC(),
		}
	}
	st.longest = st.stats(today).Longest
	st.pending = true
	st.confirmed = before
	optimistic := st.snapshot(today)
	e.mu.Unlock()

	logger.Debug("optimistic toggle", "op", oper.ID, "habit", habitID, "date", date, "action", oper.action())
	e.publish(eventbus.Event{Type: eventbus.Optimistic, OperationID: oper.ID, HabitID: habitID, Date: date, Added: oper.Added})

	// Once issued, a store call runs to completion even if the caller goes away.
	storeCtx := context.WithoutCancel(ctx)
	var confirmed models.Completion
	if oper.Added {
		confirmed, err = e.insertCompletion(storeCtx, habitID, date)
	} else {
		err = e.deleteCompletion(storeCtx, habitID, date)
	}
	if err != nil {
		return e.resolveFailure(storeCtx, op, oper, st, before, today, err)
	}

	oper.Status = StatusConfirmed
	out := Outcome{Operation: oper}
	e.mu.Lock()
	if cur, ok := e.habits[habitID]; ok && cur == st {
		if oper.Added {
			st.completions[date] = confirmed
		}
		st.pending = false
		st.confirmed = nil
		out.Snapshot = st.snapshot(today)
	} else if ok {
		// Reloaded while the call was in flight; the loaded state wins.
		out.Snapshot = cur.snapshot(today)
	} else {
		optimistic.Pending = false
		out.Snapshot = optimistic
	}
	e.mu.Unlock()

	logger.Debug("toggle confirmed", "op", oper.ID, "habit", habitID, "date", date)
	e.metrics.ObserveToggle(oper.action(), string(StatusConfirmed))
	e.publish(eventbus.Event{Type: eventbus.Confirmed, OperationID: oper.ID, HabitID: habitID, Date: date, Added: oper.Added})

	if effects != nil {
		if err := effects(storeCtx, &out); err != nil {
			out.SideEffectErr = err
			logger.Warn("toggle side effects failed", "op", oper.ID, "habit", habitID, "error", err)
		}
	}
	return out, nil
}

// resolveFailure rolls the habit back to before, except for a duplicate
// insert, where the store's completions are adopted instead. live is the
// state the optimistic mutation was applied to; if Load replaced it in the
// meantime the replacement is left alone.
func (e *Engine) resolveFailure(ctx context.Context, op string, oper Operation, live, before *habitState, today string, cause error) (Outcome, error) {
	cause = apperrors.Classify(op, cause)
	oper.Status = StatusRolledBack
	oper.Err = cause
	out := Outcome{Operation: oper}

	if oper.Added && apperrors.Is(cause, apperrors.ErrConflict) {
		records, listErr := e.listCompletions(ctx, oper.HabitID)
		if listErr == nil {
			e.mu.Lock()
			if cur, ok := e.habits[oper.HabitID]; ok && cur == live {
				adopted := newState(cur.habit, records, today)
				if before.longest > adopted.longest {
					adopted.longest = before.longest
				}
				e.habits[oper.HabitID] = adopted
				out.Snapshot = adopted.snapshot(today)
			} else if ok {
				out.Snapshot = cur.snapshot(today)
			}
			e.mu.Unlock()

			logger.Warn("toggle conflicted, adopted store state", "op", oper.ID, "habit", oper.HabitID, "date", oper.Date)
			e.metrics.ObserveToggle(oper.action(), "conflict")
			e.publish(eventbus.Event{Type: eventbus.RolledBack, OperationID: oper.ID, HabitID: oper.HabitID, Date: oper.Date, Added: oper.Added, Err: cause.Error()})
			return out, cause
		}
		cause = apperrors.Unavailable(op, listErr)
		out.Operation.Err = cause
	}

	e.mu.Lock()
	if cur, ok := e.habits[oper.HabitID]; ok && cur == live {
		restored := before.clone()
		restored.habit = cur.habit
		restored.pending = false
		e.habits[oper.HabitID] = restored
		out.Snapshot = restored.snapshot(today)
	} else if ok {
		out.Snapshot = cur.snapshot(today)
	}
	e.mu.Unlock()

	logger.Warn("toggle rolled back", "op", oper.ID, "habit", oper.HabitID, "date", oper.Date, "error", cause)
	e.metrics.ObserveToggle(oper.action(), string(StatusRolledBack))
	e.publish(eventbus.Event{Type: eventbus.RolledBack, OperationID: oper.ID, HabitID: oper.HabitID, Date: oper.Date, Added: oper.Added, Err: cause.Error()})
	return out, cause
}

// acquire takes the habit's slot. Waiting callers are admitted in arrival
// order; the wait ends early only if ctx is done.
func (e *Engine) acquire(ctx context.Context, op, habitID string) (func(), error) {
	for {
		e.mu.Lock()
		slot, ok := e.slots[habitID]
		if !ok {
			slot = make(chan struct{}, 1)
			e.slots[habitID] = slot
		}
		e.mu.Unlock()

		select {
		case slot <- struct{}{}:
		case <-ctx.Done():
			return nil, apperrors.Unavailable(op, ctx.Err())
		}

		// Untrack may have dropped the slot while we waited for it.
		e.mu.Lock()
		current := e.slots[habitID] == slot
		e.mu.Unlock()
		if current {
			return func() { e.release(habitID, slot) }, nil
		}
		<-slot
	}
}

// release frees the slot and drops it if the habit was untracked meanwhile.
func (e *Engine) release(habitID string, slot chan struct{}) {
	<-slot
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, tracked := e.habits[habitID]; !tracked && e.slots[habitID] == slot && len(slot) == 0 {
		delete(e.slots, habitID)
	}
}

func checkWindow(op, date, today string) error {
	if !calendar.ValidDate(date) {
		return apperrors.Validation(op, "invalid date %q (expected YYYY-MM-DD)", date)
	}
	age := calendar.DaysBetween(date, today)
	if age < 0 {
		return apperrors.Validation(op, "date %s is in the future", date)
	}
	if age > constants.RetroactiveDays {
		return apperrors.Validation(op, "date %s is more than %d days ago", date, constants.RetroactiveDays)
	}
	return nil
}

func (e *Engine) listCompletions(ctx context.Context, habitID string) ([]models.Completion, error) {
	defer e.observe("list_completions", time.Now())
	list, err := e.store.ListCompletions(ctx, habitID)
	return list, apperrors.Classify("store.list_completions", err)
}

func (e *Engine) insertCompletion(ctx context.Context, habitID, date string) (models.Completion, error) {
	defer e.observe("insert_completion", time.Now())
	c, err := e.store.InsertCompletion(ctx, habitID, e.userID, date)
	return c, apperrors.Classify("store.insert_completion", err)
}

func (e *Engine) deleteCompletion(ctx context.Context, habitID, date string) error {
	defer e.observe("delete_completion", time.Now())
	return apperrors.Classify("store.delete_completion", e.store.DeleteCompletion(ctx, habitID, date))
}

func (e *Engine) observe(op string, start time.Time) {
	e.metrics.ObserveStoreCall(op, time.Since(start))
}
