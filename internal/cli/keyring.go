package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/streakly/internal/keyring"
	"github.com/julianstephens/streakly/internal/storage"
	"github.com/julianstephens/streakly/internal/storage/postgres"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
	Status KeyringStatusCmd `cmd:"" help:"Check keyring availability."`
}

type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in keyring"`
}

func (cmd *KeyringSetCmd) Run(ctx *Context) error {
	if !storage.IsPostgres(cmd.ConnectionString) && !strings.Contains(cmd.ConnectionString, "host=") {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if _, err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// The keyring is encrypted, so embedded credentials are accepted here.
		ctx.printf("%s Connection string contains embedded credentials; storing it in the encrypted OS keyring.\n", warnStyle.Render("!"))
	}

	if err := keyring.SetConnectionString(cmd.ConnectionString); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	ctx.printf("%s Connection string stored in OS keyring\n", okStyle.Render("✓"))
	ctx.printf("  Set storage.dsn to %q to use it\n", storage.KeyringDSN)
	return nil
}

type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *Context) error {
	connStr, err := keyring.GetConnectionString()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'streakly keyring set' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}
	ctx.printf("%s\n", maskPassword(connStr))
	return nil
}

type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *Context) error {
	if err := keyring.DeleteConnectionString(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return fmt.Errorf("failed to delete connection string from keyring: %w", err)
	}
	ctx.printf("%s Connection string deleted from OS keyring\n", okStyle.Render("✓"))
	return nil
}

type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *Context) error {
	if !keyring.IsAvailable() {
		ctx.printf("OS keyring is not available on this system\n")
		return errors.New("keyring unavailable")
	}
	ctx.printf("%s OS keyring is available\n", okStyle.Render("✓"))
	if _, err := keyring.GetConnectionString(); err == nil {
		ctx.printf("%s Connection string is stored in keyring\n", okStyle.Render("✓"))
	} else if errors.Is(err, keyring.ErrNotFound) {
		ctx.printf("No connection string stored in keyring\n")
	}
	return nil
}

// maskPassword hides the password of a URL or key=value connection string.
func maskPassword(connStr string) string {
	if storage.IsPostgres(connStr) {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			rest := connStr[idx+3:]
			if at := strings.LastIndex(rest, "@"); at != -1 {
				userInfo := rest[:at]
				if colon := strings.Index(userInfo, ":"); colon != -1 {
					return connStr[:idx+3] + userInfo[:colon] + ":****" + rest[at:]
				}
			}
		}
		return connStr
	}

	if !strings.Contains(connStr, "password=") {
		return connStr
	}
	parts := strings.Fields(connStr)
	for i, part := range parts {
		if strings.HasPrefix(part, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}
