package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/streakly/internal/backup"
	"github.com/julianstephens/streakly/internal/calendar"
	"github.com/julianstephens/streakly/internal/config"
	"github.com/julianstephens/streakly/internal/engine"
	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/models"
	"github.com/julianstephens/streakly/internal/storage"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boldStyle  = lipgloss.NewStyle().Bold(true)
)

// Context is shared by every command.
type Context struct {
	Ctx    context.Context
	Config *config.Config
	Loader *config.Loader
	// DSN is the --db flag; it overrides the configured storage.
	DSN   string
	Debug bool
	Out   io.Writer

	// Clock overrides the configured timezone clock, for tests.
	Clock calendar.Clock

	store storage.Provider
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) ctx() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// UserID is the configured current user.
func (c *Context) UserID() string {
	return c.Config.User.ID
}

// OpenStore resolves the DSN and returns the provider without loading it.
func (c *Context) OpenStore() (storage.Provider, error) {
	if c.store != nil {
		return c.store, nil
	}
	dsn, err := storage.ResolveDSN(c.DSN, c.Config.Storage.DSN)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(config.ExpandPath(dsn))
	if err != nil {
		return nil, err
	}
	logger.Debug("opened store", "kind", store.Kind(), "path", store.Path())
	c.store = store
	return store, nil
}

// Store returns a loaded provider.
func (c *Context) Store() (storage.Provider, error) {
	store, err := c.OpenStore()
	if err != nil {
		return nil, err
	}
	if err := store.Load(c.ctx()); err != nil {
		return nil, err
	}
	return store, nil
}

// Close releases the store if one was opened.
func (c *Context) Close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

// ClockFor returns the clock for the user's timezone. The configured
// timezone wins; "Local" falls back to the one recorded in the profile.
func (c *Context) ClockFor(store storage.Provider) (calendar.Clock, error) {
	if c.Clock != nil {
		return c.Clock, nil
	}
	tz := c.Config.User.Timezone
	if tz == "" || tz == "Local" {
		if profile, err := store.GetProfile(c.ctx(), c.UserID()); err == nil && profile.Timezone != "" {
			tz = profile.Timezone
		}
	}
	return calendar.NewClock(tz)
}

// Engine loads the active habits of the current user into a new engine.
func (c *Context) Engine(opts ...engine.Option) (*engine.Engine, storage.Provider, error) {
	store, err := c.Store()
	if err != nil {
		return nil, nil, err
	}
	clock, err := c.ClockFor(store)
	if err != nil {
		return nil, nil, err
	}
	habits, err := store.ListHabits(c.ctx(), c.UserID(), false)
	if err != nil {
		return nil, nil, err
	}
	eng := engine.New(store, clock, c.UserID(), opts...)
	if err := eng.Load(c.ctx(), habits); err != nil {
		return nil, nil, err
	}
	return eng, store, nil
}

// FindHabit looks a habit up by name, then by id.
func (c *Context) FindHabit(store storage.Provider, ref string) (models.Habit, error) {
	ref = strings.TrimSpace(ref)
	habit, err := store.GetHabitByName(c.ctx(), c.UserID(), ref)
	if err == nil {
		return habit, nil
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return models.Habit{}, err
	}
	habit, err = store.GetHabit(c.ctx(), ref)
	if err != nil || habit.UserID != c.UserID() {
		return models.Habit{}, apperrors.NotFound("find habit", "habit %q not found", ref)
	}
	return habit, nil
}

// PerformAutomaticBackup snapshots a SQLite store and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if c.store == nil || c.store.Kind() != "sqlite" {
		return
	}
	mgr := backup.NewManager(c.store.Path())
	if _, err := mgr.Create(c.ctx()); err != nil {
		logger.Warn("automatic backup failed", "error", err)
	}
}
