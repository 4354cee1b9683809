// Package gateway contém as partes transversais da borda HTTP:
//
//   - taxonomia de erros do gateway e escrita de respostas JSON {error, message}
//   - headers de segurança e CORS por allow-list de origens
//   - endpoint de health check
//
// As regras de negócio moram nos pacotes de feature (objects, cache, session,
// middleware/ratelimit); aqui fica apenas o que toda resposta carrega.
package gateway
