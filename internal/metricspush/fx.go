package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/kado/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const periodicPushInterval = 5 * time.Minute

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Invoke(RunPusher),
)

// RunPusher wires metric pushes into the process lifecycle. One-shot runs
// push on shutdown so the final counters survive the exit; long-running
// processes push periodically as a backstop for environments without a
// scrape path.
func RunPusher(lc fx.Lifecycle, cfg config.Config, pusher Pusher, logger *zap.Logger) {
	if pusher == nil {
		return
	}
	log := logger.Named("metricspush")

	if cfg.SchedulerOneshot {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
				defer cancel()
				if err := pusher.Push(pushCtx, prometheus.DefaultGatherer); err != nil {
					log.Error("final metrics push failed", zap.Error(err))
				}
				return nil
			},
		})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(periodicPushInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if err := pusher.Push(ctx, prometheus.DefaultGatherer); err != nil {
							log.Warn("periodic metrics push failed", zap.Error(err))
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
