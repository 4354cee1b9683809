package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storage-gateway/middleware/ratelimit/domain"
)

// RedisCounterStore implementa domain.CounterStore com contadores de janela
// fixa no Redis.
//
// Cada janela vira uma chave própria ({prefix}:{key}:{inícioDaJanela}), então
// o reset acontece naturalmente na virada da janela e clientes ociosos somem
// por TTL — nenhum processo precisa lembrar de nada entre requisições.
type RedisCounterStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

type RedisCounterOption func(*RedisCounterStore)

func WithCounterPrefix(prefix string) RedisCounterOption {
	return func(s *RedisCounterStore) { s.prefix = prefix }
}

// WithCounterClock injeta o relógio (testes).
func WithCounterClock(now func() time.Time) RedisCounterOption {
	return func(s *RedisCounterStore) { s.now = now }
}

func NewRedisCounterStore(rdb *redis.Client, opts ...RedisCounterOption) *RedisCounterStore {
	s := &RedisCounterStore{
		rdb:    rdb,
		prefix: "gateway:ratelimit",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisCounterStore) Incr(ctx context.Context, key domain.Key, window time.Duration) (int64, time.Time, error) {
	now := s.now()
	windowStart := now.Truncate(window)
	resetAt := windowStart.Add(window)

	rkey := fmt.Sprintf("%s:%s:%d", s.prefix, key, windowStart.UnixMilli())

	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, rkey)
	// TTL maior que a janela: a chave só precisa sobreviver até a virada,
	// a folga evita expirar um contador ainda em uso por skew de relógio.
	pipe.PExpire(ctx, rkey, window+window/2)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	return incr.Val(), resetAt, nil
}
