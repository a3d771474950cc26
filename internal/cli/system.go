package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/streakly/internal/calendar"
)

type InitCmd struct {
	Timezone string `help:"IANA timezone recorded in the profile (e.g. Europe/Berlin)." short:"z"`
}

func (cmd *InitCmd) Run(ctx *Context) error {
	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}
	if err := store.Init(ctx.ctx()); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if cmd.Timezone != "" {
		if _, err := calendar.LoadLocation(cmd.Timezone); err != nil {
			return err
		}
		if err := store.SetTimezone(ctx.ctx(), ctx.UserID(), cmd.Timezone); err != nil {
			return fmt.Errorf("failed to save timezone: %w", err)
		}
	}

	if store.Path() != "" {
		ctx.printf("%s Initialized %s storage at %s\n", okStyle.Render("✓"), store.Kind(), store.Path())
	} else {
		ctx.printf("%s Initialized %s storage\n", okStyle.Render("✓"), store.Kind())
	}
	return nil
}

type migrator interface {
	Migrate(ctx context.Context, logFn func(string)) (int, error)
}

type MigrateCmd struct{}

func (cmd *MigrateCmd) Run(ctx *Context) error {
	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}
	m, ok := store.(migrator)
	if !ok {
		return errors.New("migrations are not supported for " + store.Kind() + " storage")
	}

	applied, err := m.Migrate(ctx.ctx(), func(msg string) {
		ctx.printf("  %s\n", mutedStyle.Render(msg))
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if applied == 0 {
		ctx.printf("Database schema is up to date\n")
		return nil
	}
	ctx.printf("%s Applied %d migration(s)\n", okStyle.Render("✓"), applied)
	return nil
}
