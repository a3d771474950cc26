package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/streakly/internal/constants"
	"github.com/julianstephens/streakly/internal/keyring"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/storage/memory"
	"github.com/julianstephens/streakly/internal/storage/postgres"
	"github.com/julianstephens/streakly/internal/storage/sqlite"
)

const (
	// MemoryDSN selects the in-memory store.
	MemoryDSN = "memory:"
	// KeyringDSN reads the connection string from the OS keyring.
	KeyringDSN = "keyring:"
)

// IsPostgres reports whether dsn addresses a PostgreSQL server.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open returns the provider for dsn without connecting. Call Init or Load
// before use.
func Open(dsn string) (Provider, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, errors.New("storage DSN is empty")
	case dsn == MemoryDSN:
		return memory.New(), nil
	case IsPostgres(dsn):
		if ok, err := postgres.ValidateConnString(dsn); !ok {
			return nil, err
		}
		return postgres.New(dsn), nil
	default:
		return sqlite.New(dsn), nil
	}
}

// ResolveDSN picks the DSN to open. An explicit value wins, then the
// STREAKLY_DB_CONNECTION variable, then the configured value. The configured
// value "keyring:" loads the connection string from the OS keyring.
func ResolveDSN(explicit, configured string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(constants.EnvDBConnection); env != "" {
		logger.Debug("using DSN from environment", "var", constants.EnvDBConnection)
		return env, nil
	}
	if configured != KeyringDSN {
		return configured, nil
	}

	dsn, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("no connection string in keyring, run 'streakly keyring set' first: %w", err)
		}
		return "", err
	}
	return dsn, nil
}
