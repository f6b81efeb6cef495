package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/clock"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/config"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/migration"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/observability"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/server"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/sweeper"
	"github.com/mertlendinyurt-source/epinnew-sub000/pkg/db"
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
		sweeper.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	return snowflake.NewNode(nodeID % 1024)
}
