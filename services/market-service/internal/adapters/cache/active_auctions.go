// Package cache keeps read-mostly query results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/floroz/bazaar/services/market-service/internal/domain/auctions"
)

const (
	ActiveAuctionsKey = "auctions:active"
	// ActiveAuctionsGenKey counts invalidations; a fill only lands if it
	// has not moved since the miss that started it.
	ActiveAuctionsGenKey = "auctions:active:gen"
)

var errStaleFill = errors.New("active auctions changed during fill")

// ActiveAuctionsCache implements auctions.ActiveAuctionsCache. Redis
// failures are logged and treated as misses.
type ActiveAuctionsCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ auctions.ActiveAuctionsCache = (*ActiveAuctionsCache)(nil)

func NewActiveAuctionsCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *ActiveAuctionsCache {
	return &ActiveAuctionsCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns the cached list. On a miss it returns the generation to
// hand back to Set, or "" when Redis is unavailable.
func (c *ActiveAuctionsCache) Get(ctx context.Context) ([]*auctions.Auction, string, bool) {
	generation, err := c.generation(ctx, c.rdb)
	if err != nil {
		c.logger.Warn("Failed to read active auctions generation", "error", err)
		return nil, "", false
	}

	data, err := c.rdb.Get(ctx, ActiveAuctionsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read active auctions cache", "error", err)
			return nil, "", false
		}
		return nil, generation, false
	}

	var list []*auctions.Auction
	if err := json.Unmarshal(data, &list); err != nil {
		c.logger.Warn("Dropping corrupt active auctions cache", "error", err)
		c.Invalidate(ctx)
		return nil, "", false
	}
	return list, generation, true
}

// Set stores list unless the cache was invalidated after the Get that
// returned generation.
func (c *ActiveAuctionsCache) Set(ctx context.Context, generation string, list []*auctions.Auction) {
	if generation == "" {
		return
	}
	data, err := json.Marshal(list)
	if err != nil {
		c.logger.Warn("Failed to encode active auctions", "error", err)
		return
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ActiveAuctionsKey, data, c.ttl)
			return nil
		})
		return err
	}, ActiveAuctionsGenKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("Skipped stale active auctions fill", "generation", generation)
	default:
		c.logger.Warn("Failed to write active auctions cache", "error", err)
	}
}

func (c *ActiveAuctionsCache) Invalidate(ctx context.Context) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, ActiveAuctionsGenKey)
		pipe.Del(ctx, ActiveAuctionsKey)
		return nil
	})
	if err != nil {
		c.logger.Warn("Failed to invalidate active auctions cache", "error", err)
	}
}

func (c *ActiveAuctionsCache) generation(ctx context.Context, r redis.Cmdable) (string, error) {
	generation, err := r.Get(ctx, ActiveAuctionsGenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return generation, err
}
