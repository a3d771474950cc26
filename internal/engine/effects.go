package engine

import (
	"context"
	"time"

	"github.com/julianstephens/streakly/internal/achievements"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/eventbus"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/points"
)

// scoreToday awards points for the streak the completion produced. The streak
// is derived from the confirmed set, not from the pre-toggle value.
func (e *Engine) scoreToday(ctx context.Context, out *Outcome) error {
	if !out.Operation.Added {
		return e.reverse(ctx, out)
	}
	award := points.For(out.Snapshot.Stats.Current)
	reason := models.PointReasonCompletion
	if award.Bonus > 0 {
		reason = models.PointReasonStreakBonus
	}
	return e.award(ctx, out, award, reason)
}

func (e *Engine) scorePast(ctx context.Context, out *Outcome) error {
	if !out.Operation.Added {
		return e.reverse(ctx, out)
	}
	return e.award(ctx, out, points.Retroactive(), models.PointReasonRetroactive)
}

func (e *Engine) award(ctx context.Context, out *Outcome, award points.Award, reason models.PointReason) error {
	var errs []error
	total, err := e.adjustPoints(ctx, out.Operation, award.Total, reason)
	if err != nil {
		errs = append(errs, err)
	} else {
		out.Award = award
		out.TotalPoints = total
	}

	unlocked, err := e.evaluate(ctx)
	out.Unlocked = unlocked
	if err != nil {
		errs = append(errs, err)
	}
	return apperrors.Join(errs...)
}

// reverse takes back whatever the ledger holds for the removed completion.
func (e *Engine) reverse(ctx context.Context, out *Outcome) error {
	oper := out.Operation
	start := time.Now()
	net, err := e.store.PointsAwarded(ctx, e.userID, oper.HabitID, oper.Date)
	e.observe("points_awarded", start)
	if err != nil {
		return apperrors.Classify("store.points_awarded", err)
	}
	if net <= 0 {
		return nil
	}
	total, err := e.adjustPoints(ctx, oper, -net, models.PointReasonReversal)
	if err != nil {
		return err
	}
	out.Reversed = net
	out.TotalPoints = total
	return nil
}

func (e *Engine) adjustPoints(ctx context.Context, oper Operation, delta int, reason models.PointReason) (int, error) {
	entry := models.PointEntry{
		UserID:    e.userID,
		HabitID:   oper.HabitID,
		Date:      oper.Date,
		Delta:     delta,
		Reason:    reason,
		CreatedAt: e.clock.Now().UTC(),
	}
	start := time.Now()
	total, err := e.store.AdjustPoints(ctx, entry)
	e.observe("adjust_points", start)
	if err != nil {
		return 0, apperrors.Classify("store.adjust_points", err)
	}

	e.metrics.ObservePoints(delta)
	e.publish(eventbus.Event{Type: eventbus.Points, OperationID: oper.ID, HabitID: oper.HabitID, Date: oper.Date, Delta: delta, Total: total})
	logger.Debug("points adjusted", "habit", oper.HabitID, "date", oper.Date, "delta", delta, "total", total, "reason", reason)
	return total, nil
}

// EvaluateAchievements unlocks every kind the current stats qualify for.
// It returns the kinds unlocked by this call in catalogue order.
func (e *Engine) EvaluateAchievements(ctx context.Context) ([]achievements.Kind, error) {
	return e.evaluate(ctx)
}

// Unlocked returns the kinds recorded so far. It is empty until the first
// Load or evaluation.
func (e *Engine) Unlocked() map[achievements.Kind]bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[achievements.Kind]bool, len(e.unlocked))
	for k, v := range e.unlocked {
		out[k] = v
	}
	return out
}

func (e *Engine) evaluate(ctx context.Context) ([]achievements.Kind, error) {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	if err := e.loadUnlocked(ctx); err != nil {
		return nil, err
	}

	today := e.Today()
	e.mu.RLock()
	stats := e.statsLocked(today)
	unlocked := make(map[achievements.Kind]bool, len(e.unlocked))
	for k, v := range e.unlocked {
		unlocked[k] = v
	}
	e.mu.RUnlock()

	var newly []achievements.Kind
	var errs []error
	for _, kind := range achievements.Evaluate(stats, unlocked) {
		start := time.Now()
		err := e.store.RecordAchievementUnlock(ctx, e.userID, string(kind))
		e.observe("record_achievement_unlock", start)
		if err != nil {
			errs = append(errs, apperrors.Classify("store.record_achievement_unlock", err))
			continue
		}

		e.mu.Lock()
		e.unlocked[kind] = true
		e.mu.Unlock()

		newly = append(newly, kind)
		e.metrics.ObserveUnlock(string(kind))
		e.publish(eventbus.Event{Type: eventbus.Achievement, Kind: string(kind)})
		logger.Info("achievement unlocked", "kind", kind, "user", e.userID)
	}
	return newly, apperrors.Join(errs...)
}

// loadUnlocked fetches the recorded kinds once. Callers hold evalMu.
func (e *Engine) loadUnlocked(ctx context.Context) error {
	if e.unlockedLoaded {
		return nil
	}
	start := time.Now()
	list, err := e.store.ListAchievements(ctx, e.userID)
	e.observe("list_achievements", start)
	if err != nil {
		return apperrors.Classify("store.list_achievements", err)
	}

	e.mu.Lock()
	for _, a := range list {
		if kind, err := achievements.ParseKind(a.Kind); err == nil {
			e.unlocked[kind] = true
		}
	}
	e.mu.Unlock()
	e.unlockedLoaded = true
	return nil
}
