package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned by Get when no value is cached for the key.
var ErrMiss = errors.New("cache miss")

// SearchCache stores rendered search pages per scope (one scope per
// hospital). Get reports the scope version it observed; callers pass that
// version back to Set so a page computed before an Invalidate is filed under
// the superseded version and never served afterwards.
type SearchCache interface {
	Get(ctx context.Context, scope, key string) ([]byte, int64, error)
	Set(ctx context.Context, scope string, version int64, key string, value []byte) error
	Invalidate(ctx context.Context, scope string) error
}

// HospitalScope is the invalidation scope covering every cached search page
// of one hospital.
func HospitalScope(hospitalID int64) string {
	return fmt.Sprintf("hospital:%d", hospitalID)
}

// Dial parses a redis:// URL, connects and pings the server.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisSearchCache keeps entries under "{prefix}:{scope}:v{N}:{key}" where N
// is the counter stored at "{prefix}:{scope}:version".
type RedisSearchCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSearchCache(client *redis.Client, prefix string, ttl time.Duration) *RedisSearchCache {
	return &RedisSearchCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisSearchCache) versionKey(scope string) string {
	return fmt.Sprintf("%s:%s:version", c.prefix, scope)
}

func (c *RedisSearchCache) entryKey(scope string, version int64, key string) string {
	return fmt.Sprintf("%s:%s:v%d:%s", c.prefix, scope, version, key)
}

func (c *RedisSearchCache) version(ctx context.Context, scope string) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(scope)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache version: %w", err)
	}
	return v, nil
}

func (c *RedisSearchCache) Get(ctx context.Context, scope, key string) ([]byte, int64, error) {
	v, err := c.version(ctx, scope)
	if err != nil {
		return nil, 0, err
	}
	data, err := c.client.Get(ctx, c.entryKey(scope, v, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, v, ErrMiss
	}
	if err != nil {
		return nil, v, fmt.Errorf("read cache entry: %w", err)
	}
	return data, v, nil
}

func (c *RedisSearchCache) Set(ctx context.Context, scope string, version int64, key string, value []byte) error {
	if err := c.client.Set(ctx, c.entryKey(scope, version, key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Invalidate bumps the scope version. Entries under older versions are left
// to expire through their TTL.
func (c *RedisSearchCache) Invalidate(ctx context.Context, scope string) error {
	if err := c.client.Incr(ctx, c.versionKey(scope)).Err(); err != nil {
		return fmt.Errorf("bump cache version: %w", err)
	}
	return nil
}

// Nop is a SearchCache that never holds anything.
type Nop struct{}

func (Nop) Get(context.Context, string, string) ([]byte, int64, error) { return nil, 0, ErrMiss }

func (Nop) Set(context.Context, string, int64, string, []byte) error { return nil }

func (Nop) Invalidate(context.Context, string) error { return nil }
