package constants

import "time"

const (
	AppName            = "streakly"
	DefaultKeyringUser = "database-connection"
	DefaultDataDir     = "~/.config/streakly"
	DefaultDBFile      = "streakly.db"
	DefaultConfigFile  = "config.yaml"
	DefaultUserID      = "local"
	Version            = "v0.3.0"

	// EnvPrefix is the prefix for every configuration environment variable
	EnvPrefix = "STREAKLY"
	// EnvDBConnection overrides the configured storage DSN
	EnvDBConnection = "STREAKLY_DB_CONNECTION"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "streakly-"
	BackupFileSuffix = ".db"

	// Server defaults
	DefaultServerAddr  = "127.0.0.1:8037"
	DefaultRateLimit   = 60
	DefaultRateWindow  = time.Minute
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 10 * time.Second
)
