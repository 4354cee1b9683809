// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - RedisCounterStore: contador de janela fixa externalizado no Redis
//   - LocalStore: token bucket por chave (golang.org/x/time/rate), fallback do fail-open
//   - ChanPool: semáforo simples para limite de concorrência
//   - RedisStatsStore / MemoryStatsStore: persistência de estatísticas allow/deny
package infra
