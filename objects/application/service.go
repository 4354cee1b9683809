package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storage-gateway/objects/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000

	defaultContentType = "application/octet-stream"
)

// Service concentra os casos de uso do roteador de chaves: derivar a chave a
// partir do contexto de rota e delegar leitura/escrita ao object store.
type Service struct {
	Store domain.Store

	// Now é o relógio da derivação de chave (injetável em teste).
	Now func() time.Time
}

// PutInput são os dados de um upload roteado.
type PutInput struct {
	Data        []byte
	FileName    string
	ContentType string
	Metadata    map[string]string
	Routing     domain.RoutingContext
}

// Put deriva a chave e grava o objeto. Retorna a chave criada.
func (s Service) Put(ctx context.Context, in PutInput) (string, error) {
	if err := in.Routing.Validate(); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.FileName) == "" {
		return "", fmt.Errorf("%w: fileName is required", domain.ErrInvalid)
	}
	if len(in.Data) == 0 {
		return "", fmt.Errorf("%w: data is empty", domain.ErrInvalid)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	key := domain.DeriveKey(in.FileName, in.Routing, now())

	obj := domain.Object{
		Key:         key,
		Data:        in.Data,
		ContentType: in.ContentType,
		Metadata:    in.Metadata,
	}
	if obj.ContentType == "" {
		obj.ContentType = defaultContentType
	}
	if err := s.Store.Put(ctx, obj); err != nil {
		return "", err
	}
	return key, nil
}

// PutRaw grava sob uma chave fornecida pelo chamador (caminhos provisionados
// pelo sistema, fora do esquema derivado).
func (s Service) PutRaw(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: key is required", domain.ErrInvalid)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: key must be a clean relative path", domain.ErrInvalid)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: data is empty", domain.ErrInvalid)
	}

	obj := domain.Object{Key: key, Data: data, ContentType: contentType, Metadata: metadata}
	if obj.ContentType == "" {
		obj.ContentType = defaultContentType
	}
	if err := s.Store.Put(ctx, obj); err != nil {
		return "", err
	}
	return key, nil
}

func (s Service) Get(ctx context.Context, key string) (domain.Object, error) {
	if strings.TrimSpace(key) == "" {
		return domain.Object{}, fmt.Errorf("%w: key is required", domain.ErrInvalid)
	}
	return s.Store.Get(ctx, key)
}

// List pagina por cursor. Limite fora da faixa é normalizado, nunca erro.
func (s Service) List(ctx context.Context, prefix, cursor string, limit int32) (domain.ListPage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.Store.List(ctx, prefix, cursor, limit)
}

func (s Service) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key is required", domain.ErrInvalid)
	}
	return s.Store.Delete(ctx, key)
}
