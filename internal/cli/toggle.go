package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/streakly/internal/achievements"
	"github.com/julianstephens/streakly/internal/constants"
	"github.com/julianstephens/streakly/internal/engine"
	apperrors "github.com/julianstephens/streakly/internal/errors"
)

type DoneCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (c *DoneCmd) Run(ctx *Context) error {
	eng, store, err := ctx.Engine()
	if err != nil {
		return err
	}
	habit, err := ctx.FindHabit(store, c.Habit)
	if err != nil {
		return err
	}

	out, err := eng.ToggleToday(ctx.ctx(), habit.ID)
	if err != nil {
		return err
	}
	ctx.printOutcome(out)
	ctx.PerformAutomaticBackup()
	return nil
}

type MarkCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Date  string `help:"Past date in YYYY-MM-DD format, at most 7 days ago." required:""`
}

func (c *MarkCmd) Run(ctx *Context) error {
	eng, store, err := ctx.Engine()
	if err != nil {
		return err
	}
	habit, err := ctx.FindHabit(store, c.Habit)
	if err != nil {
		return err
	}

	out, err := eng.TogglePast(ctx.ctx(), habit.ID, c.Date)
	if err != nil {
		return err
	}
	ctx.printOutcome(out)
	ctx.PerformAutomaticBackup()
	return nil
}

func (c *Context) printOutcome(out engine.Outcome) {
	op := out.Operation
	name := out.Snapshot.Habit.Name
	if op.Added {
		c.printf("%s Marked %s for %s\n", okStyle.Render("✓"), boldStyle.Render(name), op.Date)
	} else {
		c.printf("Unmarked %s for %s\n", boldStyle.Render(name), op.Date)
	}
	c.printf("  %s\n", mutedStyle.Render(describeStreak(out.Snapshot)))

	switch {
	case out.Award.Total > 0 && out.Award.Bonus > 0:
		c.printf("  +%d points (%d + %d streak bonus), total %d\n", out.Award.Total, out.Award.Base, out.Award.Bonus, out.TotalPoints)
	case out.Award.Total > 0:
		c.printf("  +%d points, total %d\n", out.Award.Total, out.TotalPoints)
	case out.Reversed > 0:
		c.printf("  -%d points, total %d\n", out.Reversed, out.TotalPoints)
	}
	c.printUnlocked(out.Unlocked)
	if out.SideEffectErr != nil {
		c.printf("%s %v\n", warnStyle.Render("!"), out.SideEffectErr)
	}
}

func describeStreak(s engine.Snapshot) string {
	if s.Habit.IsWeekly() {
		return fmt.Sprintf("%d/%d this week, streak %d week(s), best %d", s.Stats.WeekCount, s.Habit.Target, s.Stats.Current, s.Stats.Longest)
	}
	return fmt.Sprintf("streak %d day(s), best %d", s.Stats.Current, s.Stats.Longest)
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *Context) error {
	eng, store, err := ctx.Engine()
	if err != nil {
		return err
	}
	snaps := eng.Snapshots()
	if len(snaps) == 0 {
		ctx.printf("No habits found. Add one with 'streakly habit add'.\n")
		return nil
	}

	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		done := " "
		if s.Stats.CompletedInPeriod {
			done = "x"
		}
		progress := "-"
		if s.Habit.IsWeekly() {
			progress = fmt.Sprintf("%d/%d", s.Stats.WeekCount, s.Habit.Target)
		}
		rows = append(rows, []string{
			"[" + done + "]",
			s.Habit.Name,
			strconv.Itoa(s.Stats.Current),
			strconv.Itoa(s.Stats.Longest),
			progress,
		})
	}

	t := table.New().
		Headers("", "Habit", "Streak", "Best", "Week").
		Rows(rows...)
	ctx.printf("Habits for %s:\n%s\n", eng.Today(), t.Render())

	profile, err := store.GetProfile(ctx.ctx(), ctx.UserID())
	if err != nil {
		return err
	}
	stats := eng.Stats()
	ctx.printf("Points: %d   Completions: %d   Best active streak: %d\n", profile.TotalPoints, stats.TotalCompletions, stats.MaxStreak)
	return nil
}

type PointsCmd struct{}

func (c *PointsCmd) Run(ctx *Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	profile, err := store.GetProfile(ctx.ctx(), ctx.UserID())
	if err != nil {
		return err
	}
	ctx.printf("%d points\n", profile.TotalPoints)
	return nil
}

type AchievementsCmd struct {
	Evaluate bool `help:"Evaluate the catalogue against current stats first."`
}

func (c *AchievementsCmd) Run(ctx *Context) error {
	if c.Evaluate {
		eng, _, err := ctx.Engine()
		if err != nil {
			return err
		}
		unlocked, err := eng.EvaluateAchievements(ctx.ctx())
		if err != nil {
			return err
		}
		ctx.printUnlocked(unlocked)
	}

	store, err := ctx.Store()
	if err != nil {
		return err
	}
	records, err := store.ListAchievements(ctx.ctx(), ctx.UserID())
	if err != nil {
		return apperrors.Classify("achievements", err)
	}
	when := make(map[achievements.Kind]string, len(records))
	for _, r := range records {
		when[achievements.Kind(r.Kind)] = r.UnlockedAt.Local().Format(constants.DateFormat)
	}

	for _, def := range achievements.All() {
		if at, ok := when[def.Kind]; ok {
			ctx.printf("%s %s  %s %s\n", def.Icon, boldStyle.Render(def.Name), def.Description, mutedStyle.Render("("+at+")"))
			continue
		}
		ctx.printf("%s %s  %s\n", mutedStyle.Render("🔒"), mutedStyle.Render(def.Name), mutedStyle.Render(def.Description))
	}
	ctx.printf("\n%d/%d unlocked\n", len(when), len(achievements.All()))
	return nil
}
