package notification

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(NewOutboxPublisher),
	fx.Provide(NewNotifier),
)

// NewNotifier always writes the outbox and adds redis pub/sub when configured.
func NewNotifier(outbox *OutboxPublisher, client *redis.Client) Notifier {
	if client == nil {
		return outbox
	}
	return NewMultiPublisher(outbox, NewRedisPublisher(client))
}
