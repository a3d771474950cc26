package cli

import (
	"github.com/julianstephens/streakly/internal/engine"
	"github.com/julianstephens/streakly/internal/eventbus"
	"github.com/julianstephens/streakly/internal/tui"
)

type TuiCmd struct{}

func (cmd *TuiCmd) Run(ctx *Context) error {
	hub := eventbus.NewHub()
	eng, store, err := ctx.Engine(engine.WithHub(hub))
	if err != nil {
		return err
	}
	if err := tui.Run(ctx.ctx(), eng, store, hub); err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()
	return nil
}
