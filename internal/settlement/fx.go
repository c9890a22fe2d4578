package settlement

import (
	"context"

	"github.com/fieldview/arbiter/internal/config"
	"go.uber.org/fx"
)

// ConfigFromApp maps service configuration onto the worker config.
func ConfigFromApp(cfg config.Config) Config {
	return Config{
		Enabled:      cfg.Settlement.Enabled,
		BatchSize:    cfg.Settlement.BatchSize,
		PollInterval: cfg.Settlement.PollInterval,
	}
}

var Module = fx.Module("settlement",
	fx.Provide(ConfigFromApp),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, worker *Worker) {
	if !worker.cfg.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go worker.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
