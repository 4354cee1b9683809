package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"storage-gateway/session/domain"
)

type fakeRepo struct {
	records map[string]domain.Record

	createErr     error
	getMisses     int // próximos N Gets respondem ErrNotFound
	updateCalls   int
	expiredCutoff time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]domain.Record)}
}

func (f *fakeRepo) Create(_ context.Context, rec domain.Record) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.records[rec.ID]; ok {
		return errors.New("duplicate key")
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (domain.Record, error) {
	if f.getMisses > 0 {
		f.getMisses--
		return domain.Record{}, domain.ErrNotFound
	}
	rec, ok := f.records[id]
	if !ok {
		return domain.Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, version int64, to domain.Status) error {
	f.updateCalls++
	rec, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Version != version {
		return domain.ErrConflict
	}
	rec.Status = to
	rec.Version++
	f.records[id] = rec
	return nil
}

func (f *fakeRepo) ExpireOverdue(_ context.Context, cutoff time.Time) (int64, error) {
	f.expiredCutoff = cutoff
	var n int64
	for id, rec := range f.records {
		if rec.Status == domain.StatusActive && rec.CreatedAt.Before(cutoff) {
			rec.Status = domain.StatusExpired
			rec.Version++
			f.records[id] = rec
			n++
		}
	}
	return n, nil
}

var baseNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func newService(repo domain.Repository) Service {
	return Service{Repo: repo, TTL: 15 * time.Minute, Now: func() time.Time { return baseNow }}
}

func TestService_InitMintsID(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	rec, err := svc.Init(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(rec.ID); err != nil {
		t.Fatalf("expected minted uuid, got %q", rec.ID)
	}
	if rec.Status != domain.StatusActive || rec.Version != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, ok := repo.records[rec.ID]; !ok {
		t.Fatalf("expected record persisted")
	}
}

func TestService_InitIsIdempotentForExistingID(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	first, err := svc.Init(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := svc.Init(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("expected idempotent init, got %v", err)
	}
	if again != first {
		t.Fatalf("expected existing record returned, got %+v", again)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected single record, got %d", len(repo.records))
	}
}

func TestService_InitRejectsMalformedID(t *testing.T) {
	svc := newService(newFakeRepo())

	if _, err := svc.Init(context.Background(), "not-a-uuid"); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestService_InitLoserOfInsertRaceReturnsWinner(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	// o Get inicial não vê nada, o INSERT perde a corrida para outro init e
	// o Get de recuperação devolve o registro do vencedor
	id := uuid.NewString()
	winner := domain.Record{ID: id, CreatedAt: baseNow, Status: domain.StatusActive, Version: 1}
	repo.getMisses = 1
	repo.createErr = errors.New("duplicate key")
	repo.records[id] = winner

	rec, err := svc.Init(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != winner {
		t.Fatalf("expected winner's record, got %+v", rec)
	}
}

func TestService_VerifyStates(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	rec, err := svc.Init(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	valid, _, err := svc.Verify(context.Background(), rec.ID)
	if err != nil || !valid {
		t.Fatalf("expected fresh session valid, got valid=%v err=%v", valid, err)
	}

	// desconhecida: inválida sem erro
	valid, _, err = svc.Verify(context.Background(), uuid.NewString())
	if err != nil || valid {
		t.Fatalf("expected unknown session invalid without error, got valid=%v err=%v", valid, err)
	}

	if _, _, err := svc.Verify(context.Background(), ""); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for empty id, got %v", err)
	}
}

func TestService_VerifyGuardsTTLBeforeSweep(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	rec, err := svc.Init(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// relógio avança além do TTL sem o sweeper rodar
	svc.Now = func() time.Time { return baseNow.Add(16 * time.Minute) }
	valid, got, err := svc.Verify(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid {
		t.Fatalf("expected overdue session invalid even while marked active")
	}
	if got.Status != domain.StatusActive {
		t.Fatalf("verify must not transition the record, got %s", got.Status)
	}
}

func TestService_InvalidateIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	rec, err := svc.Init(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Invalidate(context.Background(), rec.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.records[rec.ID]; got.Status != domain.StatusInvalidated || got.Version != 2 {
		t.Fatalf("unexpected record after invalidate: %+v", got)
	}

	// segunda chamada: registro terminal, sucesso sem novo UPDATE
	before := repo.updateCalls
	if err := svc.Invalidate(context.Background(), rec.ID); err != nil {
		t.Fatalf("expected idempotent invalidate, got %v", err)
	}
	if repo.updateCalls != before {
		t.Fatalf("expected no update on terminal record")
	}

	if err := svc.Invalidate(context.Background(), uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSweeper_SweepOnceExpiresOverdue(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	old, err := svc.Init(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Now = func() time.Time { return baseNow.Add(10 * time.Minute) }
	fresh, err := svc.Init(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sw := Sweeper{
		Repo: repo,
		TTL:  15 * time.Minute,
		Now:  func() time.Time { return baseNow.Add(16 * time.Minute) },
	}
	n, err := sw.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}
	if got := repo.records[old.ID]; got.Status != domain.StatusExpired {
		t.Fatalf("expected old session expired, got %s", got.Status)
	}
	if got := repo.records[fresh.ID]; got.Status != domain.StatusActive {
		t.Fatalf("expected fresh session untouched, got %s", got.Status)
	}
}
