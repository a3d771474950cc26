package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// WriteFile writes cfg as YAML to path, creating parent directories.
func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	if path == "" {
		return fmt.Errorf("config path must not be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	b, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML in the same shape the loader reads.
func Marshal(cfg *Config) ([]byte, error) {
	payload := map[string]any{
		"user": map[string]any{
			"id":       cfg.User.ID,
			"timezone": cfg.User.Timezone,
		},
		"storage": map[string]any{
			"dsn": cfg.Storage.DSN,
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
			"dir":   cfg.Log.Dir,
		},
		"server": map[string]any{
			"addr":        cfg.Server.Addr,
			"rate_limit":  cfg.Server.RateLimit,
			"rate_window": cfg.Server.RateWindow.String(),
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return b, nil
}
