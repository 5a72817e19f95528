package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/config"
	"github.com/smallbiznis/pgstay/internal/migration"
	"github.com/smallbiznis/pgstay/internal/observability"
	"github.com/smallbiznis/pgstay/internal/server"
	"github.com/smallbiznis/pgstay/pkg/db"
	"github.com/smallbiznis/pgstay/pkg/redis"
	"go.uber.org/fx"
)

// The expiry sweep runs separately, see apps/scheduler.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redis.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and every domain module behind it
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
