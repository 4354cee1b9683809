package infra

import (
	"context"

	"github.com/redis/go-redis/v9"

	"storage-gateway/cache/domain"
)

// RedisCache implementa domain.Store com um hash por content id.
//
// Sem TTL de propósito: o conteúdo é endereçado pelo próprio hash e nunca
// fica stale. A pressão de memória é problema de sizing/eviction do Redis
// (allkeys-lru funciona bem aqui), não do gateway.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

type RedisCacheOption func(*RedisCache)

func WithCachePrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

func NewRedisCache(rdb *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{rdb: rdb, prefix: "gateway:cache"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(k string) string { return c.prefix + ":" + k }

func (c *RedisCache) Get(ctx context.Context, key string) (domain.Entry, bool, error) {
	vals, err := c.rdb.HGetAll(ctx, c.key(key)).Result()
	if err != nil {
		return domain.Entry{}, false, err
	}
	if len(vals) == 0 {
		return domain.Entry{}, false, nil
	}
	return domain.Entry{
		Body:        []byte(vals["body"]),
		ContentType: vals["ctype"],
	}, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, e domain.Entry) error {
	return c.rdb.HSet(ctx, c.key(key), "body", e.Body, "ctype", e.ContentType).Err()
}
