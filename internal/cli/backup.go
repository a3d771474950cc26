package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/streakly/internal/backup"
	"github.com/julianstephens/streakly/internal/constants"
	apperrors "github.com/julianstephens/streakly/internal/errors"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List available backups."`
	Restore BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
}

func (c *Context) backupManager() (*backup.Manager, error) {
	store, err := c.OpenStore()
	if err != nil {
		return nil, err
	}
	if store.Kind() != "sqlite" {
		return nil, apperrors.Validation("backup", "backups are only supported for SQLite storage (current: %s)", store.Kind())
	}
	return backup.NewManager(store.Path()), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *Context) error {
	mgr, err := ctx.backupManager()
	if err != nil {
		return err
	}
	path, err := mgr.Create(ctx.ctx())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	ctx.printf("%s Backup created: %s\n", okStyle.Render("✓"), filepath.Base(path))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *Context) error {
	mgr, err := ctx.backupManager()
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		ctx.printf("No backups found.\nBackups are stored in: %s\n", mgr.Dir())
		return nil
	}

	ctx.printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), constants.MaxBackups)
	for _, b := range backups {
		ctx.printf("  %s  %s  (%.1f KB)\n",
			b.Timestamp.Local().Format("2006-01-02 15:04:05"),
			filepath.Base(b.Path),
			float64(b.Size)/1024.0,
		)
	}
	ctx.printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *BackupRestoreCmd) Run(ctx *Context) error {
	mgr, err := ctx.backupManager()
	if err != nil {
		return err
	}
	path, err := resolveBackupPath(c.BackupFile, mgr.Dir())
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title("Replace the current database with " + filepath.Base(path) + "?").
			Description("Stop every other streakly process first. The current database is backed up before restoring.").
			Affirmative("Restore").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			ctx.printf("Restore cancelled.\n")
			return nil
		}
	}

	if err := ctx.Close(); err != nil {
		ctx.printf("%s failed to close database connection: %v\n", warnStyle.Render("!"), err)
	}
	safety, err := mgr.Restore(ctx.ctx(), path)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	ctx.printf("%s Database restored from %s\n", okStyle.Render("✓"), filepath.Base(path))
	if safety != "" {
		ctx.printf("  Previous database saved as %s\n", filepath.Base(safety))
	}
	return nil
}

// resolveBackupPath accepts an absolute path, a path relative to the working
// directory or a file name inside the backup directory.
func resolveBackupPath(ref, dir string) (string, error) {
	if filepath.IsAbs(ref) {
		if _, err := os.Stat(ref); err != nil {
			return "", fmt.Errorf("backup file not found: %s", ref)
		}
		return ref, nil
	}
	if _, err := os.Stat(ref); err == nil {
		return filepath.Abs(ref)
	}
	candidate := filepath.Join(dir, ref)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", dir)
}
