//go:build integration

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/bazaar/pkg/testhelpers"
	"github.com/floroz/bazaar/services/market-service/internal/adapters/cache"
	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
)

func TestActiveAuctionsCache(t *testing.T) {
	rdb := testhelpers.NewTestRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	c := cache.NewActiveAuctionsCache(rdb, time.Minute, logger)

	_, generation, ok := c.Get(ctx)
	assert.False(t, ok, "empty cache must miss")
	assert.Equal(t, "0", generation)

	end := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	list := []*auctions.Auction{{ID: uuid.New(), Title: "Lamp", CurrentPrice: 150, EndTime: end, IsActive: true}}
	c.Set(ctx, generation, list)

	got, _, ok := c.Get(ctx)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, list[0].ID, got[0].ID)
	assert.Equal(t, int64(150), got[0].CurrentPrice)
	assert.True(t, end.Equal(got[0].EndTime))

	ttl, err := rdb.TTL(ctx, cache.ActiveAuctionsKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	c.Invalidate(ctx)
	_, generation, ok = c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, "1", generation)

	require.NoError(t, rdb.Set(ctx, cache.ActiveAuctionsKey, "not json", 0).Err())
	_, _, ok = c.Get(ctx)
	assert.False(t, ok)
	assert.Zero(t, rdb.Exists(ctx, cache.ActiveAuctionsKey).Val(), "corrupt entries are dropped")
}

func TestActiveAuctionsCache_InvalidateBeatsSlowFill(t *testing.T) {
	rdb := testhelpers.NewTestRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	c := cache.NewActiveAuctionsCache(rdb, time.Minute, logger)
	stale := []*auctions.Auction{{ID: uuid.New(), Title: "Lamp", CurrentPrice: 100, IsActive: true}}

	// A reader misses and loads from the database...
	_, generation, ok := c.Get(ctx)
	require.False(t, ok)

	// ...a bid commits and invalidates before the reader writes back
	c.Invalidate(ctx)
	c.Set(ctx, generation, stale)

	_, fresh, ok := c.Get(ctx)
	assert.False(t, ok, "a fill started before Invalidate must not land")
	assert.NotEqual(t, generation, fresh)

	c.Set(ctx, fresh, stale)
	_, _, ok = c.Get(ctx)
	assert.True(t, ok, "a fill from the current generation lands")
}

func TestActiveAuctionsCache_RedisDownSkipsFill(t *testing.T) {
	rdb := testhelpers.NewTestRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	c := cache.NewActiveAuctionsCache(rdb, time.Minute, logger)
	c.Set(ctx, "", []*auctions.Auction{{ID: uuid.New(), Title: "Lamp"}})

	assert.Zero(t, rdb.Exists(ctx, cache.ActiveAuctionsKey).Val())
}
