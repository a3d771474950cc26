package cli

import (
	"fmt"
	"os"

	"github.com/julianstephens/streakly/internal/config"
)

type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a config file with the default settings."`
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration."`
}

type ConfigInitCmd struct {
	Force bool `help:"Overwrite an existing file."`
}

func (cmd *ConfigInitCmd) Run(ctx *Context) error {
	path := config.DefaultPath()
	if ctx.Loader != nil && ctx.Loader.Path() != "" {
		path = ctx.Loader.Path()
	}
	if _, err := os.Stat(path); err == nil && !cmd.Force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}
	if err := config.WriteFile(path, config.Default()); err != nil {
		return err
	}
	ctx.printf("%s Wrote config to %s\n", okStyle.Render("✓"), path)
	return nil
}

type ConfigShowCmd struct{}

func (cmd *ConfigShowCmd) Run(ctx *Context) error {
	b, err := config.Marshal(ctx.Config)
	if err != nil {
		return err
	}
	if ctx.Loader != nil {
		ctx.printf("%s\n", mutedStyle.Render("# "+ctx.Loader.Path()))
	}
	ctx.printf("%s", b)
	return nil
}
