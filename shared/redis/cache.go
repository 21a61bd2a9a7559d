package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eaglebank/platform/shared/config"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Each entry is a hash: "v" holds the version, "d" the JSON view. An empty
// "d" is a tombstone. A write lands only when its version is strictly newer
// than the stored one; keys of another type are replaced.
var setIfNewer = goredis.NewScript(`
if redis.call('TYPE', KEYS[1]).ok ~= 'hash' then
  redis.call('DEL', KEYS[1])
end
local current = redis.call('HGET', KEYS[1], 'v')
if current and tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'd', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// ViewCache is a versioned, JSON-backed Redis cache for read model
// projections. Writers pass a version that grows with every committed
// change of the entity (its updated_at in microseconds), so a slow writer
// holding an older snapshot can never replace a newer one. Redis is never
// the source of truth: a failed read is a miss, a failed write is logged
// and dropped.
type ViewCache[T any] struct {
	client goredis.Cmdable
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewViewCache creates a ViewCache whose keys all start with prefix. ttl 0
// or less means config.DefaultViewTTL.
func NewViewCache[T any](client goredis.Cmdable, prefix string, ttl time.Duration, logger *zap.Logger) *ViewCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = config.DefaultViewTTL
	}
	return &ViewCache[T]{client: client, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *ViewCache[T]) key(k string) string { return c.prefix + k }

// Get returns (nil, false) on any miss, tombstone or decode error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.HGet(ctx, c.key(key), "d").Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Debug("view cache read failed", zap.String("key", c.key(key)), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Warn("view cache entry corrupt", zap.String("key", c.key(key)), zap.Error(err))
		return nil, false
	}
	return &v, true
}

// Set stores value under key unless the entry already holds version or a
// newer one.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T, version int64) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("view cache marshal failed", zap.String("key", c.key(key)), zap.Error(err))
		return
	}
	c.store(ctx, key, data, version)
}

// Invalidate replaces the entries with tombstones at version, so snapshots
// read before the invalidation cannot bring them back.
func (c *ViewCache[T]) Invalidate(ctx context.Context, version int64, keys ...string) {
	for _, k := range keys {
		c.store(ctx, k, nil, version)
	}
}

func (c *ViewCache[T]) store(ctx context.Context, key string, data []byte, version int64) {
	err := setIfNewer.Run(ctx, c.client, []string{c.key(key)}, version, data, c.ttl.Milliseconds()).Err()
	if err != nil && err != goredis.Nil {
		c.logger.Warn("view cache write failed", zap.String("key", c.key(key)), zap.Int64("version", version), zap.Error(err))
		return
	}
	c.logger.Debug("view cache write", zap.String("key", c.key(key)), zap.Int64("version", version))
}

// VersionOf converts a row's updated_at into a cache version.
func VersionOf(updatedAt time.Time) int64 { return updatedAt.UnixMicro() }
