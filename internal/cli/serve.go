package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/streakly/internal/config"
	"github.com/julianstephens/streakly/internal/engine"
	"github.com/julianstephens/streakly/internal/logger"
	"github.com/julianstephens/streakly/internal/metrics"
	"github.com/julianstephens/streakly/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Listen address; overrides server.addr."`
}

func (cmd *ServeCmd) Run(ctx *Context) error {
	m := metrics.New()
	eng, store, err := ctx.Engine(engine.WithMetrics(m))
	if err != nil {
		return err
	}

	cfg := ctx.Config.Server
	if cmd.Addr != "" {
		cfg.Addr = cmd.Addr
	}

	if ctx.Loader != nil {
		ctx.Loader.Watch(func(next *config.Config) {
			logger.SetLevel(next.Log.Level)
		})
	}

	runCtx, stop := signal.NotifyContext(ctx.ctx(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.printf("Serving %s on http://%s\n", ctx.UserID(), cfg.Addr)
	return server.New(cfg, eng, store, m).Run(runCtx)
}
