package redis

import (
	"context"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pgstay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

// New returns nil when no redis address is configured.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *goredis.Client {
	if !cfg.Redis.Enabled() {
		log.Info("redis disabled, using in-process locking and outbox-only notifications")
		return nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     strings.TrimSpace(cfg.Redis.Addr),
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}
