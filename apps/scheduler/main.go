// Command scheduler runs the lifecycle loop without an HTTP surface. With
// SCHEDULER_ONESHOT=true it executes one tick and exits, which suits a cron
// deployment; metrics are pushed out on shutdown in that mode.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kado/internal/clock"
	"github.com/smallbiznis/kado/internal/config"
	"github.com/smallbiznis/kado/internal/contribution"
	"github.com/smallbiznis/kado/internal/event"
	"github.com/smallbiznis/kado/internal/member"
	"github.com/smallbiznis/kado/internal/metricspush"
	"github.com/smallbiznis/kado/internal/notification"
	"github.com/smallbiznis/kado/internal/observability"
	"github.com/smallbiznis/kado/internal/providers"
	"github.com/smallbiznis/kado/internal/ratelimit"
	"github.com/smallbiznis/kado/internal/scheduler"
	"github.com/smallbiznis/kado/internal/team"
	"github.com/smallbiznis/kado/internal/vote"
	"github.com/smallbiznis/kado/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services the sweeps depend on. No server module.
		providers.Module,
		notification.Module,
		member.Module,
		team.Module,
		event.Module,
		contribution.Module,
		vote.Module,
		ratelimit.Module,

		scheduler.Module,
		metricspush.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
