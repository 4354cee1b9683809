package domain

import (
	"context"
	"errors"
	"time"
)

// Status do registro de sessão. active é o único estado não-terminal;
// invalidated e expired nunca voltam a active.
type Status string

const (
	StatusActive      Status = "active"
	StatusInvalidated Status = "invalidated"
	StatusExpired     Status = "expired"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrInvalidID indica um session id ausente ou fora do formato aceito.
	ErrInvalidID = errors.New("invalid session id")
	// ErrConflict indica que a versão do registro mudou entre leitura e
	// escrita — outra transição venceu a corrida.
	ErrConflict = errors.New("session version conflict")
)

// Record é o estado de uma sessão de criptografia/autenticação.
//
// Version é a coluna de concorrência otimista: ela faz o papel do runtime de
// ator serializado — toda transição é um UPDATE guardado por (id, version),
// então duas transições concorrentes nunca se sobrescrevem em silêncio.
type Record struct {
	ID        string
	CreatedAt time.Time
	Status    Status
	Version   int64
}

// Terminal informa se o registro já saiu de active.
func (r Record) Terminal() bool {
	return r.Status == StatusInvalidated || r.Status == StatusExpired
}

// OverdueAt informa se a sessão já passou do TTL no instante dado,
// independente do sweeper ter rodado. É a defesa contra clock drift e
// wake-up perdido: verify considera inválido mesmo antes da marcação.
func (r Record) OverdueAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.CreatedAt) > ttl
}

// ValidAt é a regra do verify: ativo e dentro do TTL.
func (r Record) ValidAt(now time.Time, ttl time.Duration) bool {
	return r.Status == StatusActive && !r.OverdueAt(now, ttl)
}

// Repository persiste registros de sessão com escrita serializada por versão.
type Repository interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// UpdateStatus aplica a transição guardada pela versão lida.
	// Retorna ErrConflict se a versão não bater mais.
	UpdateStatus(ctx context.Context, id string, version int64, to Status) error
	// ExpireOverdue marca como expired toda sessão active criada antes do
	// cutoff. Retorna quantos registros transicionaram.
	ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error)
}
