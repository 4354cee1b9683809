package infra

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storage-gateway/session/domain"
)

// querier é o recorte de pgxpool.Pool que o repositório usa.
// Implementado por *pgxpool.Pool e por pgxmock nos testes.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implementa domain.Repository sobre uma linha por sessão.
//
// A serialização single-writer por sessionId vem do UPDATE guardado por
// versão: a transição que perder a corrida recebe ErrConflict em vez de
// sobrescrever o que a vencedora gravou.
type PostgresRepository struct {
	db querier
}

func NewPostgresRepository(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec domain.Record) error {
	const q = `INSERT INTO sessions (id, created_at, status, version) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, q, rec.ID, rec.CreatedAt, string(rec.Status), rec.Version)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (domain.Record, error) {
	const q = `SELECT id, created_at, status, version FROM sessions WHERE id=$1`
	var rec domain.Record
	var status string
	err := r.db.QueryRow(ctx, q, id).Scan(&rec.ID, &rec.CreatedAt, &status, &rec.Version)
	switch {
	case err == nil:
		rec.Status = domain.Status(status)
		return rec, nil
	case errors.Is(err, pgx.ErrNoRows):
		return domain.Record{}, domain.ErrNotFound
	default:
		return domain.Record{}, err
	}
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, version int64, to domain.Status) error {
	const q = `UPDATE sessions SET status=$3, version=version+1 WHERE id=$1 AND version=$2`
	tag, err := r.db.Exec(ctx, q, id, version, string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *PostgresRepository) ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `UPDATE sessions SET status=$2, version=version+1 WHERE status=$3 AND created_at < $1`
	tag, err := r.db.Exec(ctx, q, cutoff, string(domain.StatusExpired), string(domain.StatusActive))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
