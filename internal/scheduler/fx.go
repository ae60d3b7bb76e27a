package scheduler

import (
	"context"

	"github.com/smallbiznis/kado/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(RunScheduler),
)

// RunScheduler starts the tick loop when this process runs the scheduler
// role. With SCHEDULER_ONESHOT the process executes a single tick and shuts
// the app down, which is how the cron-style deployment runs it.
func RunScheduler(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, sched *Scheduler, log *zap.Logger) {
	if !cfg.RunsScheduler() {
		return
	}

	if cfg.SchedulerOneshot {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := sched.RunOnce(context.Background()); err != nil {
						log.Named("scheduler").Error("oneshot tick failed", zap.Error(err))
					}
					if err := shutdowner.Shutdown(); err != nil {
						log.Named("scheduler").Error("shutdown failed", zap.Error(err))
					}
				}()
				return nil
			},
		})
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
