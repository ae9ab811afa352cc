package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/bazaar/services/market-service/internal/domain/changes"
)

func TestRedisChangeFeed_ListenKeepsRetryingWhileRedisIsDown(t *testing.T) {
	var dials atomic.Int32
	rdb := redis.NewClient(&redis.Options{
		Addr: "redis.invalid:6379",
		Dialer: func(context.Context, string, string) (net.Conn, error) {
			dials.Add(1)
			return nil, errors.New("connection refused")
		},
	})
	t.Cleanup(func() { _ = rdb.Close() })

	feed := NewRedisChangeFeed(rdb, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- feed.Listen(ctx, changes.NewHub()) }()

	require.Eventually(t, func() bool { return dials.Load() >= 3 }, 10*time.Second, 20*time.Millisecond,
		"Listen should resubscribe after a failed connection")

	select {
	case err := <-done:
		t.Fatalf("Listen returned while Redis was down: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancellation")
	}
}

func TestRedisChangeFeed_RunFailsFastWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr: "redis.invalid:6379",
		Dialer: func(context.Context, string, string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	})
	t.Cleanup(func() { _ = rdb.Close() })

	feed := NewRedisChangeFeed(rdb, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := feed.Run(context.Background(), changes.NewHub())
	assert.ErrorContains(t, err, "failed to subscribe to changes")
}
