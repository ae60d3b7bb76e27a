// Command api runs the HTTP surface only. A separate scheduler replica owns
// the lifecycle loop; /health reports no scheduler section and the manual
// trigger returns 503 here.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kado/internal/clock"
	"github.com/smallbiznis/kado/internal/config"
	"github.com/smallbiznis/kado/internal/migration"
	"github.com/smallbiznis/kado/internal/observability"
	"github.com/smallbiznis/kado/internal/server"
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
		migration.Module,

		server.Module,
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
