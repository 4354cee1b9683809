package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storage-gateway/session/domain"
)

const defaultTTL = 15 * time.Minute

// Service concentra o ciclo de vida da sessão: init, verify e invalidate.
//
// Exatamente um registro existe por sessionId; o id endereça a linha de forma
// determinística, nunca aleatoriedade do cliente na hora da chamada.
type Service struct {
	Repo domain.Repository
	TTL  time.Duration

	// Now é o relógio do serviço (injetável em teste).
	Now func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return defaultTTL
}

// Init cria a sessão (mintando o id quando não fornecido). Para um id já
// inicializado a operação é idempotente: devolve o registro existente em vez
// de errar — escolha documentada para clientes que fazem retry de init.
func (s Service) Init(ctx context.Context, id string) (domain.Record, error) {
	if id == "" {
		id = uuid.NewString()
	} else {
		if _, err := uuid.Parse(id); err != nil {
			return domain.Record{}, domain.ErrInvalidID
		}
		rec, err := s.Repo.Get(ctx, id)
		switch err {
		case nil:
			return rec, nil
		case domain.ErrNotFound:
			// segue para criação
		default:
			return domain.Record{}, err
		}
	}

	rec := domain.Record{
		ID:        id,
		CreatedAt: s.now().UTC(),
		Status:    domain.StatusActive,
		Version:   1,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		// dois init concorrentes com o mesmo id: o perdedor do INSERT
		// devolve o registro que o vencedor criou
		if existing, gerr := s.Repo.Get(ctx, id); gerr == nil {
			return existing, nil
		}
		return domain.Record{}, err
	}
	return rec, nil
}

// Verify é leitura pura: nunca transiciona o registro. Uma sessão active
// porém além do TTL conta como inválida mesmo que o sweeper ainda não tenha
// rodado (defesa contra clock drift / wake-up perdido).
func (s Service) Verify(ctx context.Context, id string) (bool, domain.Record, error) {
	if id == "" {
		return false, domain.Record{}, domain.ErrInvalidID
	}
	rec, err := s.Repo.Get(ctx, id)
	switch err {
	case nil:
		return rec.ValidAt(s.now(), s.ttl()), rec, nil
	case domain.ErrNotFound:
		return false, domain.Record{}, nil
	default:
		return false, domain.Record{}, err
	}
}

// Invalidate leva a sessão a invalidated. Idempotente sobre registros já
// terminais; se o sweeper expirar a sessão no meio da corrida, o resultado
// (terminal) vale como sucesso.
func (s Service) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidID
	}

	for attempt := 0; attempt < 2; attempt++ {
		rec, err := s.Repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if rec.Terminal() {
			return nil
		}
		err = s.Repo.UpdateStatus(ctx, id, rec.Version, domain.StatusInvalidated)
		if err == nil {
			return nil
		}
		if err != domain.ErrConflict {
			return err
		}
	}
	return domain.ErrConflict
}
