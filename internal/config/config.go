// Package config loads streakly settings from a YAML file and STREAKLY_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/julianstephens/streakly/internal/constants"
	"github.com/julianstephens/streakly/internal/logger"
)

// Config is the full application configuration.
type Config struct {
	User    UserConfig    `mapstructure:"user" yaml:"user"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

type UserConfig struct {
	ID       string `mapstructure:"id" yaml:"id"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

type StorageConfig struct {
	// DSN is a SQLite file path, a postgres:// URL or "memory:".
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Dir   string `mapstructure:"dir" yaml:"dir"`
}

type ServerConfig struct {
	Addr       string        `mapstructure:"addr" yaml:"addr"`
	RateLimit  int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window" yaml:"rate_window"`
}

// Loader owns the viper instance behind a loaded Config so the file can be
// watched afterwards.
type Loader struct {
	v    *viper.Viper
	path string
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(ExpandPath(constants.DefaultDataDir), constants.DefaultConfigFile)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.expand()
	return &cfg
}

// Load reads the config file at path (DefaultPath when empty). A missing file
// is not an error.
func Load(path string) (*Config, *Loader, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultPath()
	}
	path = ExpandPath(path)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if isMissingFile(path) {
		logger.Debug("config file not found, using defaults", "path", path)
	} else if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		logger.Debug("loaded config", "path", v.ConfigFileUsed())
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, &Loader{v: v, path: path}, nil
}

// Path is the file the loader reads from.
func (l *Loader) Path() string { return l.path }

// Watch re-reads the file whenever it changes on disk and hands the new
// configuration to onChange. Invalid edits are logged and skipped.
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(l.v)
		if err != nil {
			logger.Warn("ignoring invalid config change", "path", e.Name, "error", err)
			return
		}
		logger.Info("config reloaded", "path", e.Name)
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.User.ID) == "" {
		return fmt.Errorf("user.id must not be empty")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Server.RateWindow <= 0 {
		return fmt.Errorf("server.rate_window must be positive")
	}
	return nil
}

func (c *Config) expand() {
	c.Storage.DSN = expandDSN(c.Storage.DSN)
	c.Log.Dir = ExpandPath(c.Log.Dir)
}

func setDefaults(v *viper.Viper) {
	dataDir := constants.DefaultDataDir

	v.SetDefault("user.id", constants.DefaultUserID)
	v.SetDefault("user.timezone", "Local")

	v.SetDefault("storage.dsn", filepath.Join(dataDir, constants.DefaultDBFile))

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.dir", filepath.Join(dataDir, "logs"))

	v.SetDefault("server.addr", constants.DefaultServerAddr)
	v.SetDefault("server.rate_limit", constants.DefaultRateLimit)
	v.SetDefault("server.rate_window", constants.DefaultRateWindow)
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func expandDSN(dsn string) string {
	if strings.Contains(dsn, "://") || strings.HasSuffix(dsn, ":") {
		return dsn
	}
	return ExpandPath(dsn)
}

func isMissingFile(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}
