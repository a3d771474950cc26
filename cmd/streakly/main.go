package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/streakly/internal/cli"
	"github.com/julianstephens/streakly/internal/config"
	"github.com/julianstephens/streakly/internal/constants"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"~/.config/streakly/config.yaml"`
	DB      string `help:"SQLite path, PostgreSQL URL without password, 'keyring' or 'memory:'. Overrides storage.dsn." name:"db"`
	User    string `help:"User id to act as. Overrides user.id."`
	Debug   bool   `help:"Log debug output to stderr."`

	Init         cli.InitCmd         `cmd:"" help:"Initialize streakly storage."`
	Migrate      cli.MigrateCmd      `cmd:"" help:"Run database migrations."`
	Tui          cli.TuiCmd          `cmd:"" help:"Launch the interactive habit board." default:"1"`
	Habit        cli.HabitCmd        `cmd:"" help:"Manage habits."`
	Done         cli.DoneCmd         `cmd:"" help:"Toggle today's completion of a habit."`
	Mark         cli.MarkCmd         `cmd:"" help:"Toggle a completion within the last 7 days."`
	Status       cli.StatusCmd       `cmd:"" help:"Show streaks for every habit."`
	Points       cli.PointsCmd       `cmd:"" help:"Show the points total."`
	Achievements cli.AchievementsCmd `cmd:"" help:"List achievements."`
	Backup       cli.BackupCmd       `cmd:"" help:"Manage database backups."`
	Keyring      cli.KeyringCmd      `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Conf         cli.ConfigCmd       `cmd:"" name:"config" help:"Manage the config file."`
	Serve        cli.ServeCmd        `cmd:"" help:"Serve the HTTP API."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracking with streaks, points and achievements"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, loader, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.User != "" {
		cfg.User.ID = CLI.User
	}

	if err := logger.Init(logger.Config{Debug: CLI.Debug, Level: cfg.Log.Level, Dir: cfg.Log.Dir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	appCtx := &cli.Context{
		Ctx:    context.Background(),
		Config: cfg,
		Loader: loader,
		DSN:    CLI.DB,
		Debug:  CLI.Debug,
	}

	err = ctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("failed to close store", "error", closeErr)
	}
	apperrors.Fatal(err)
}
