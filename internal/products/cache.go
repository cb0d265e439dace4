package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "pantrytrack:product:"

// Cache keeps found products in Redis. Unknown barcodes and failures are not
// cached so a later lookup can still succeed. Redis errors degrade to calling
// the wrapped source.
type Cache struct {
	next   Source
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(next Source, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// NewRedisClient connects using a redis:// URL.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func (c *Cache) Product(ctx context.Context, barcode string) (*Product, error) {
	key := cacheKeyPrefix + barcode

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Product
		if jerr := json.Unmarshal(data, &p); jerr == nil {
			return &p, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt product cache entry", "barcode", barcode)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "product cache read failed", "barcode", barcode, "error", err)
	}

	p, err := c.next.Product(ctx, barcode)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "product cache write failed", "barcode", barcode, "error", err)
	}
	return p, nil
}
