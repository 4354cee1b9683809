// Package infra contém a persistência PostgreSQL (pgx) dos registros de
// sessão, com a coluna de versão fazendo a serialização por sessionId.
package infra
