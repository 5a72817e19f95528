package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pgstay/internal/account"
	"github.com/smallbiznis/pgstay/internal/accountlock"
	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/config"
	"github.com/smallbiznis/pgstay/internal/observability"
	"github.com/smallbiznis/pgstay/internal/plan"
	"github.com/smallbiznis/pgstay/internal/scheduler"
	"github.com/smallbiznis/pgstay/internal/subscription"
	"github.com/smallbiznis/pgstay/pkg/db"
	"github.com/smallbiznis/pgstay/pkg/redis"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redis.Module,
		clock.Module,

		// Domain services required by the expiry sweep
		plan.Module,
		accountlock.Module,
		account.Module,
		subscription.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
