package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Decision é o resultado da avaliação de uma requisição contra a janela fixa.
//
// Limit/Remaining/ResetAt alimentam os headers de telemetria em toda resposta;
// RetryAfter só é preenchido quando Allowed=false.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// CounterStore é o contador de janela fixa externalizado (fora do processo).
//
// Incr incrementa o contador da chave na janela corrente e devolve o valor
// após o incremento e o instante em que a janela reseta. A implementação deve
// expirar contadores de clientes ociosos por TTL.
//
// Corridas read-modify-write sob alta concorrência são aceitáveis: um aceite
// ocasional acima do limite é um falso negativo tolerável. O limiter é
// advisory, não fronteira de segurança.
type CounterStore interface {
	Incr(ctx context.Context, key Key, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Usado no caminho degradado (fail-open): quando o CounterStore está fora do
// ar, a decisão cai para um limiter local em memória.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (ex: IP, API key).
// A implementação pode manter cache, TTL, etc.
type LimiterStore interface {
	Get(Key) Limiter
}
