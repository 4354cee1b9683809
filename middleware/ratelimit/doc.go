// Package ratelimit fornece adapters HTTP (net/http) para rate limit de janela
// fixa e limite de concorrência na borda do gateway.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, fail-open, acquire/timeout) sem net/http
//   - infra: implementações concretas (contador Redis, token bucket local, semáforo)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (IP/header/XFF)
//  2. Chama a camada application para obter a decisão (contador no Redis;
//     se o Redis falhar, fail-open com limiter local)
//  3. Grava X-RateLimit-Limit/Remaining/Reset em toda resposta
//  4. Se bloqueado, responde 429 com Retry-After; senão chama o próximo handler
//
// Toda requisição do gateway passa por aqui antes do despacho para objects,
// cache, session ou o proxy de passagem; /health é isento via Options.Skip.
package ratelimit
