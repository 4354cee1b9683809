package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storage-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit de janela fixa.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
//
// Política de falha do contador externo: fail-open. Rate limit aqui é
// defense-in-depth, não garantia de correção; indisponibilidade do Redis
// degrada para um limiter local por chave (Fallback) em vez de derrubar
// o tráfego.
type Service struct {
	Store    domain.CounterStore
	Fallback domain.LimiterStore

	// Limit é o teto de requisições por Window (janela fixa de 1 min por padrão).
	Limit  int
	Window time.Duration

	// Burst > 0 liga a tolerância de rajada: requisições acima de Limit ainda
	// passam enquanto o contador da sub-janela (BurstWindow) não exceder Burst.
	// Troca fairness estrita por menos falso-rejeite em clientes legítimos
	// carregando vários assets de uma vez.
	Burst       int
	BurstWindow time.Duration

	Logger *zap.Logger
}

const burstKeySuffix = "#burst"

func (s Service) Decide(ctx context.Context, key domain.Key) domain.Decision {
	window := s.Window
	if window <= 0 {
		window = time.Minute
	}
	if s.Store == nil || s.Limit <= 0 {
		return domain.Decision{Allowed: true, Limit: s.Limit, Remaining: s.Limit}
	}

	count, resetAt, err := s.Store.Incr(ctx, key, window)
	if err != nil {
		return s.failOpen(key, window, err)
	}

	if count <= int64(s.Limit) {
		return domain.Decision{
			Allowed:   true,
			Limit:     s.Limit,
			Remaining: s.Limit - int(count),
			ResetAt:   resetAt,
		}
	}

	if s.Burst > 0 {
		bw := s.BurstWindow
		if bw <= 0 || bw > window {
			bw = window / 6
		}
		bcount, _, berr := s.Store.Incr(ctx, key+burstKeySuffix, bw)
		if berr != nil {
			return s.failOpen(key, window, berr)
		}
		if bcount <= int64(s.Burst) {
			return domain.Decision{Allowed: true, Limit: s.Limit, Remaining: 0, ResetAt: resetAt}
		}
	}

	retry := time.Until(resetAt)
	if retry < time.Second {
		retry = time.Second
	}
	return domain.Decision{
		Allowed:    false,
		Limit:      s.Limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retry,
	}
}

// failOpen decide localmente quando o contador externo está indisponível.
func (s Service) failOpen(key domain.Key, window time.Duration, cause error) domain.Decision {
	if s.Logger != nil {
		s.Logger.Warn("counter store unavailable, degrading to local limiter",
			zap.Error(cause))
	}

	dec := domain.Decision{
		Allowed:   true,
		Limit:     s.Limit,
		Remaining: s.Limit - 1,
		ResetAt:   time.Now().Add(window),
	}
	if dec.Remaining < 0 {
		dec.Remaining = 0
	}

	if s.Fallback != nil {
		if lim := s.Fallback.Get(key); lim != nil && !lim.Allow() {
			dec.Allowed = false
			dec.Remaining = 0
			dec.RetryAfter = time.Second
		}
	}
	return dec
}
