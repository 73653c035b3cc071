package gst

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sourzka.org/internal/obs"
)

const keyPrefix = "gstin:legal-name:"

// KV is the subset of a redis client used by Cache. *redis.Client satisfies it.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cache memoizes positive legal-name lookups in redis. Cache failures fall
// through to the wrapped lookup.
type Cache struct {
	next Lookup
	kv   KV
	ttl  time.Duration
}

// NewCache wraps next with a redis cache. ttl <= 0 means 24h.
func NewCache(next Lookup, kv KV, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{next: next, kv: kv, ttl: ttl}
}

// LegalName returns the cached name or delegates and caches a found name.
func (c *Cache) LegalName(ctx context.Context, gstin string) (string, error) {
	gstin = Normalize(gstin)
	if !Valid(gstin) {
		return "", ErrInvalidGSTIN
	}
	log := obs.FromContext(ctx)
	key := keyPrefix + gstin

	name, err := c.kv.Get(ctx, key).Result()
	switch {
	case err == nil && name != "":
		obs.GSTINLookups.WithLabelValues("cached").Inc()
		return name, nil
	case err != nil && !errors.Is(err, redis.Nil):
		log.Warn("gst: cache read failed", zap.String("gstin", gstin), zap.Error(err))
	}

	name, err = c.next.LegalName(ctx, gstin)
	if err != nil || name == "" {
		return name, err
	}
	if err := c.kv.Set(ctx, key, name, c.ttl).Err(); err != nil {
		log.Warn("gst: cache write failed", zap.String("gstin", gstin), zap.Error(err))
	}
	return name, nil
}
