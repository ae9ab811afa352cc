package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/floroz/bazaar/services/market-service/internal/domain/changes"
)

const changeChannelPrefix = "changes:"

// ChangeChannel is the Redis channel carrying changes for table.
func ChangeChannel(table string) string {
	return changeChannelPrefix + table
}

// RedisChangeFeed publishes changes on Redis pub/sub and relays them back
// into an in-process hub on every API instance.
type RedisChangeFeed struct {
	rdb    *redis.Client
	logger *slog.Logger
}

var _ changes.Publisher = (*RedisChangeFeed)(nil)

func NewRedisChangeFeed(rdb *redis.Client, logger *slog.Logger) *RedisChangeFeed {
	return &RedisChangeFeed{rdb: rdb, logger: logger}
}

func (f *RedisChangeFeed) Publish(ctx context.Context, change changes.Change) error {
	if err := f.rdb.Publish(ctx, ChangeChannel(change.Table), change.ID).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Listen keeps the hub fed until ctx is cancelled, resubscribing with
// exponential backoff whenever Redis is unreachable or drops the connection.
func (f *RedisChangeFeed) Listen(ctx context.Context, hub *changes.Hub) error {
	retry := newFeedBackOff()
	for {
		err := f.run(ctx, hub, retry.Reset)
		if ctx.Err() != nil {
			return nil
		}

		wait := retry.NextBackOff()
		f.logger.Warn("Change feed disconnected, retrying", "retry_in", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func newFeedBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Run subscribes to every change channel and dispatches messages to hub
// until ctx is cancelled. Changes published while disconnected are lost;
// watchers re-fetch when they reconnect.
func (f *RedisChangeFeed) Run(ctx context.Context, hub *changes.Hub) error {
	return f.run(ctx, hub, func() {})
}

func (f *RedisChangeFeed) run(ctx context.Context, hub *changes.Hub, onSubscribed func()) error {
	sub := f.rdb.PSubscribe(ctx, changeChannelPrefix+"*")
	defer sub.Close()

	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to changes: %w", err)
	}
	f.logger.Info("Subscribed to change feed")
	onSubscribed()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("change feed closed")
			}
			hub.Dispatch(changes.Change{
				Table: strings.TrimPrefix(msg.Channel, changeChannelPrefix),
				ID:    msg.Payload,
			})
		}
	}
}
