package rates

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/exchangebot/core/logger"
)

const cacheNamespace = "rates"

// errCacheMiss is returned by KV implementations for absent keys.
var errCacheMiss = errors.New("cache miss")

// KV is the storage the price cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	client redis.UniversalClient
}

// NewRedisKV wraps client.
func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return &RedisKV{client: client}
}

// Get implements KV.
func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errCacheMiss
	}
	return v, err
}

// Set implements KV.
func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// CachedSource keeps successful prices for a fixed TTL. It is opt-in: the
// default Resolver wiring fetches every price fresh. Failures, including
// unlisted pairs, are never cached, and cache errors fall back to the source.
type CachedSource struct {
	next PriceSource
	kv   KV
	ttl  time.Duration
}

// NewCachedSource wraps next with a TTL cache in kv.
func NewCachedSource(next PriceSource, kv KV, ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, kv: kv, ttl: ttl}
}

// Price implements PriceSource.
func (c *CachedSource) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := cacheNamespace + ":" + symbol
	raw, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		if p, perr := decimal.NewFromString(raw); perr == nil {
			logger.Debug(ctx, logger.CompRates, "price.cache",
				slog.String("cache", "hit"),
				slog.String("symbol", symbol),
			)
			return p, nil
		}
	case !errors.Is(err, errCacheMiss):
		logger.Warn(ctx, logger.CompRates, "price.cache",
			slog.String("status", "fail"),
			slog.String("symbol", symbol),
			slog.String("err", err.Error()),
		)
	}

	p, err := c.next.Price(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if serr := c.kv.Set(ctx, key, p.String(), c.ttl); serr != nil {
		logger.Warn(ctx, logger.CompRates, "price.cache",
			slog.String("status", "fail"),
			slog.String("symbol", symbol),
			slog.String("err", serr.Error()),
		)
	} else {
		logger.Debug(ctx, logger.CompRates, "price.cache",
			slog.String("cache", "refresh"),
			slog.String("symbol", symbol),
		)
	}
	return p, nil
}
