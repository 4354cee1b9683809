package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indica chave ausente no object store. Terminal para a chave.
	ErrNotFound = errors.New("object not found")
	// ErrInvalid indica entrada malformada (contexto de rota, filename, chave).
	// O cliente corrige e reenvia.
	ErrInvalid = errors.New("invalid input")
)

// Object é um payload opaco mais metadados pequenos. O gateway nunca
// interpreta os bytes: criptografia acontece antes de chegarem aqui.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
	ETag        string
	Metadata    map[string]string
	Size        int64
	Uploaded    time.Time
}

// ObjectInfo é a projeção de listagem (sem payload).
type ObjectInfo struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Uploaded time.Time `json:"uploaded"`
	ETag     string    `json:"etag"`
}

// ListPage é uma página de listagem com cursor de continuação.
// Truncated=true obriga o chamador a paginar: nunca truncamos em silêncio.
type ListPage struct {
	Objects   []ObjectInfo
	Truncated bool
	Cursor    string
}

// Store é o contrato do object store por trás do roteador de chaves.
//
// Consistência forte por chave; escritas concorrentes em chaves diferentes
// nunca conflitam por construção. Metadados são gravados atomicamente com o
// objeto — não existe passo separado que possa falhar pela metade.
type Store interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (Object, error)
	List(ctx context.Context, prefix, cursor string, limit int32) (ListPage, error)
	Delete(ctx context.Context, key string) error
}
