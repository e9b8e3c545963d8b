package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher is the slice of the go-redis client the forwarder needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisForwarder relays events to a Redis pub/sub channel for external
// consumers such as reporting dashboards.
type RedisForwarder struct {
	publisher Publisher
	channel   string
	logger    *zap.Logger
}

// NewRedisForwarder builds a forwarder. A nil publisher disables forwarding.
func NewRedisForwarder(publisher Publisher, channel string, logger *zap.Logger) *RedisForwarder {
	return &RedisForwarder{publisher: publisher, channel: channel, logger: logger}
}

// Register subscribes the forwarder to every event type.
func (f *RedisForwarder) Register(dispatcher Dispatcher) {
	if f == nil || f.publisher == nil || dispatcher == nil {
		return
	}
	dispatcher.SubscribeAll(f.Handle)
}

// Handle publishes one event as JSON.
func (f *RedisForwarder) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Type, err)
	}
	if err := f.publisher.Publish(ctx, f.channel, body).Err(); err != nil {
		f.logger.Warn("event forward failed",
			zap.String("event_type", string(event.Type)),
			zap.String("channel", f.channel),
			zap.Error(err))
		return err
	}
	return nil
}
