package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	apperrors "github.com/julianstephens/streakly/internal/errors"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/migration"
	"github.com/julianstephens/streakly/migrations"
)

// Fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	path string
	db   *sql.DB
	now  func() time.Time
}

func New(path string) *Store {
	return &Store{
		path: path,
		now:  time.Now,
	}
}

func (s *Store) Kind() string { return "sqlite" }

func (s *Store) Path() string { return s.path }

// DB returns the underlying connection, nil before Init or Load.
func (s *Store) DB() *sql.DB { return s.db }

// Init creates the database file if needed and applies pending migrations.
func (s *Store) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := s.open(); err != nil {
		return err
	}

	runner, err := s.runner()
	if err != nil {
		return err
	}
	if _, err := runner.Apply(ctx, func(msg string) { logger.Info(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Load opens an existing database and checks its schema version.
func (s *Store) Load(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'streakly init' first")
	}
	if err := s.open(); err != nil {
		return err
	}

	runner, err := s.runner()
	if err != nil {
		return err
	}
	pending, err := runner.Pending(ctx)
	if err != nil {
		return err
	}
	if pending > 0 {
		return fmt.Errorf("database schema is out of date (%d pending migration(s)), run 'streakly migrate'", pending)
	}
	return runner.ValidateVersion(ctx)
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", s.path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; modernc serializes per connection.
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

func (s *Store) runner() (*migration.Runner, error) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, sub, migration.SQLite), nil
}

// Migrate applies pending migrations to an opened database.
func (s *Store) Migrate(ctx context.Context, logFn func(string)) (int, error) {
	if s.db == nil {
		if err := s.open(); err != nil {
			return 0, err
		}
	}
	runner, err := s.runner()
	if err != nil {
		return 0, err
	}
	return runner.Apply(ctx, logFn)
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return apperrors.Unavailable("ping", errors.New("database not open"))
	}
	return apperrors.Unavailable("ping", s.db.PingContext(ctx))
}

func (s *Store) ts(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
