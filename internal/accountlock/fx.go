package accountlock

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("account.lock",
	fx.Provide(New),
)

// New picks the redis locker when a redis client is available.
func New(client *redis.Client, log *zap.Logger) Locker {
	if client != nil {
		return NewRedisLocker(client, defaultLockTTL, log)
	}
	return NewLocalLocker()
}
