package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/streakly/internal/achievements"
	"github.com/julianstephens/streakly/internal/calendar"
	"github.com/julianstephens/streakly/internal/engine"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/validation"
)

type HabitCmd struct {
	Add        HabitAddCmd        `cmd:"" help:"Add a new habit."`
	List       HabitListCmd       `cmd:"" help:"List habits."`
	Edit       HabitEditCmd       `cmd:"" help:"Edit a habit."`
	Deactivate HabitDeactivateCmd `cmd:"" help:"Deactivate a habit. Its history is kept."`
	Reactivate HabitReactivateCmd `cmd:"" help:"Reactivate a deactivated habit."`
	Log        HabitLogCmd        `cmd:"" help:"Show habit log (ASCII history)."`
}

type HabitAddCmd struct {
	Name        string `arg:"" help:"Habit name."`
	Description string `help:"Optional description." short:"d"`
	Frequency   string `help:"daily or weekly." enum:"daily,weekly" default:"daily" short:"f"`
	Target      int    `help:"Completions per week for weekly habits (1-7)." default:"1" short:"t"`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	eng, store, err := ctx.Engine()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	habit := models.Habit{
		ID:          uuid.NewString(),
		UserID:      ctx.UserID(),
		Name:        c.Name,
		Description: c.Description,
		Frequency:   models.Frequency(c.Frequency),
		Target:      c.Target,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validation.ValidateHabit(&habit); err != nil {
		return err
	}

	if existing, err := store.GetHabitByName(ctx.ctx(), habit.UserID, habit.Name); err == nil && existing.Active {
		return apperrors.Conflict("habit add", fmt.Errorf("habit with name %q already exists", habit.Name))
	}
	if err := store.AddHabit(ctx.ctx(), habit); err != nil {
		return err
	}
	if err := eng.Track(habit); err != nil {
		return err
	}

	ctx.printf("%s Added habit: %s (%s)\n", okStyle.Render("✓"), habit.Name, describeFrequency(habit))

	unlocked, err := eng.EvaluateAchievements(ctx.ctx())
	if err != nil {
		ctx.printf("%s could not evaluate achievements: %v\n", warnStyle.Render("!"), err)
	}
	ctx.printUnlocked(unlocked)
	ctx.PerformAutomaticBackup()
	return nil
}

type HabitListCmd struct {
	All bool `help:"Include deactivated habits." short:"a"`
}

func (c *HabitListCmd) Run(ctx *Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	habits, err := store.ListHabits(ctx.ctx(), ctx.UserID(), c.All)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		ctx.printf("No habits found.\n")
		return nil
	}

	for _, h := range habits {
		line := fmt.Sprintf("%s  %s", h.Name, mutedStyle.Render(describeFrequency(h)))
		if !h.Active {
			line += " " + warnStyle.Render("[INACTIVE]")
		}
		if h.Description != "" {
			line += "\n    " + mutedStyle.Render(h.Description)
		}
		ctx.printf("%s\n", line)
	}
	return nil
}

type HabitEditCmd struct {
	Habit       string  `arg:"" help:"Habit name or id."`
	Name        *string `help:"New name."`
	Description *string `help:"New description."`
	Frequency   *string `help:"daily or weekly." enum:"daily,weekly"`
	Target      *int    `help:"New weekly target (1-7)."`
}

func (c *HabitEditCmd) Run(ctx *Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	habit, err := ctx.FindHabit(store, c.Habit)
	if err != nil {
		return err
	}

	if c.Name != nil {
		habit.Name = *c.Name
	}
	if c.Description != nil {
		habit.Description = *c.Description
	}
	if c.Frequency != nil {
		habit.Frequency = models.Frequency(*c.Frequency)
	}
	if c.Target != nil {
		habit.Target = *c.Target
	}
	if err := validation.ValidateHabit(&habit); err != nil {
		return err
	}

	if other, err := store.GetHabitByName(ctx.ctx(), habit.UserID, habit.Name); err == nil && other.ID != habit.ID && other.Active {
		return apperrors.Conflict("habit edit", fmt.Errorf("habit with name %q already exists", habit.Name))
	}

	habit.UpdatedAt = time.Now().UTC()
	if err := store.UpdateHabit(ctx.ctx(), habit); err != nil {
		return err
	}
	ctx.printf("%s Updated habit: %s (%s)\n", okStyle.Render("✓"), habit.Name, describeFrequency(habit))
	ctx.PerformAutomaticBackup()
	return nil
}

type HabitDeactivateCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (c *HabitDeactivateCmd) Run(ctx *Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	habit, err := ctx.FindHabit(store, c.Habit)
	if err != nil {
		return err
	}
	if err := store.DeactivateHabit(ctx.ctx(), habit.ID); err != nil {
		return err
	}
	ctx.printf("Deactivated habit: %s\n", habit.Name)
	ctx.PerformAutomaticBackup()
	return nil
}

type HabitReactivateCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (c *HabitReactivateCmd) Run(ctx *Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	habit, err := ctx.FindHabit(store, c.Habit)
	if err != nil {
		return err
	}
	if err := store.ReactivateHabit(ctx.ctx(), habit.ID); err != nil {
		return err
	}
	ctx.printf("Reactivated habit: %s\n", habit.Name)
	ctx.PerformAutomaticBackup()
	return nil
}

type HabitLogCmd struct {
	Days  int    `help:"Number of days to show." default:"14"`
	Habit string `help:"Show log for specific habit only."`
}

func (c *HabitLogCmd) Run(ctx *Context) error {
	if c.Days <= 0 {
		return apperrors.Validation("habit log", "--days must be positive")
	}
	eng, _, err := ctx.Engine()
	if err != nil {
		return err
	}

	snaps := eng.Snapshots()
	if c.Habit != "" {
		var selected []engine.Snapshot
		for _, s := range snaps {
			if strings.EqualFold(s.Habit.Name, c.Habit) || s.Habit.ID == c.Habit {
				selected = append(selected, s)
			}
		}
		if len(selected) == 0 {
			return apperrors.NotFound("habit log", "habit %q not found", c.Habit)
		}
		snaps = selected
	}
	if len(snaps) == 0 {
		ctx.printf("No habits found.\n")
		return nil
	}

	// Oldest first, left to right.
	days := calendar.PastDays(eng.Clock(), c.Days)
	slices.Reverse(days)

	const nameWidth = 20
	ctx.printf("Habit log (last %d days):\n\n", c.Days)
	ctx.printf("%-*s", nameWidth, "Habit")
	for _, d := range days {
		ctx.printf(" %6s", calendar.FormatShort(d))
	}
	ctx.printf("\n%s\n", strings.Repeat("-", nameWidth+7*len(days)))

	for _, s := range snaps {
		name := s.Habit.Name
		if len([]rune(name)) > nameWidth-1 {
			name = string([]rune(name)[:nameWidth-2]) + "…"
		}
		ctx.printf("%-*s", nameWidth, name)
		for _, d := range days {
			mark := "."
			if s.Has(d) {
				mark = "x"
			}
			ctx.printf(" %6s", mark)
		}
		ctx.printf("\n")
	}
	return nil
}

func describeFrequency(h models.Habit) string {
	if h.IsWeekly() {
		return fmt.Sprintf("weekly, %d/week", h.Target)
	}
	return "daily"
}

func (c *Context) printUnlocked(kinds []achievements.Kind) {
	for _, k := range kinds {
		def, ok := achievements.Lookup(k)
		if !ok {
			continue
		}
		c.printf("%s Achievement unlocked: %s %s\n", def.Icon, boldStyle.Render(def.Name), mutedStyle.Render(def.Description))
	}
}
