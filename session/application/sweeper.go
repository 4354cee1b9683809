package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storage-gateway/session/domain"
)

// Sweeper é o wake-up agendado das sessões: marca como expired toda sessão
// active que passou do TTL, sem depender de nenhuma chamada de cliente
// chegar para disparar a expiração.
type Sweeper struct {
	Repo  domain.Repository
	TTL   time.Duration
	Every time.Duration

	Logger *zap.Logger
	Now    func() time.Time
}

// Start inicia a goroutine do sweeper. Pare cancelando o contexto.
func (s *Sweeper) Start(ctx context.Context) {
	every := s.Every
	if every <= 0 {
		every = time.Minute
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := s.SweepOnce(ctx); err != nil && s.Logger != nil {
					s.Logger.Warn("session sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// SweepOnce roda uma varredura e retorna quantas sessões expiraram.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	n, err := s.Repo.ExpireOverdue(ctx, now().UTC().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 && s.Logger != nil {
		s.Logger.Info("sessions expired by sweeper", zap.Int64("count", n))
	}
	return n, nil
}
