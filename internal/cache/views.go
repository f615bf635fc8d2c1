package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"biztech/api/internal/utils"
)

const viewsKeyPrefix = "listing:views:"

// IViewCounter accumulates listing view counts. Counting is best-effort:
// increments lost to a crash between flushes are acceptable.
type IViewCounter interface {
	Bump(ctx context.Context, listingID utils.SixID)
	Drain(ctx context.Context) (map[utils.SixID]int64, error)
}

// redisViewCounter implements IViewCounter on Redis INCR.
type redisViewCounter struct {
	rdb *redis.Client
}

// NewViewCounter creates a Redis-backed view counter.
func NewViewCounter(rdb *redis.Client) IViewCounter {
	return &redisViewCounter{rdb: rdb}
}

// Bump increments the pending view count for a listing. Failures are logged
// and swallowed: a lost view must never fail the read path.
func (c *redisViewCounter) Bump(ctx context.Context, listingID utils.SixID) {
	key := viewsKeyPrefix + listingID.String()
	if err := c.rdb.Incr(ctx, key).Err(); err != nil {
		log.Printf("WARN: failed to bump view counter for listing %s: %v", listingID.String(), err)
	}
}

// Drain atomically reads-and-clears all pending view counts and returns them
// keyed by listing ID. Counts GETDEL'd here but not yet persisted are lost if
// the caller crashes, which the counting contract allows.
func (c *redisViewCounter) Drain(ctx context.Context) (map[utils.SixID]int64, error) {
	counts := make(map[utils.SixID]int64)

	iter := c.rdb.Scan(ctx, 0, viewsKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := c.rdb.GetDel(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				continue // already drained by a concurrent flush
			}
			return counts, fmt.Errorf("failed to drain view counter %s: %w", key, err)
		}

		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			log.Printf("WARN: non-numeric view counter %s=%q, dropping", key, val)
			continue
		}

		id, err := utils.ParseSixID(strings.TrimPrefix(key, viewsKeyPrefix))
		if err != nil {
			log.Printf("WARN: invalid listing ID in view counter key %s, dropping", key)
			continue
		}
		counts[id] += n
	}
	if err := iter.Err(); err != nil {
		return counts, fmt.Errorf("failed to scan view counters: %w", err)
	}

	return counts, nil
}
