package domain

import "context"

// Entry é o que o cache de borda guarda por content id: bytes + o metadado
// HTTP necessário para reproduzir a resposta.
type Entry struct {
	Body        []byte
	ContentType string
}

// Store é o cache de leituras endereçadas por conteúdo.
//
// Entradas nunca expiram nem são invalidadas: a chave embute o hash dos
// bytes, então "mesma chave => mesmos bytes para sempre" é garantido pelo
// esquema de nomes do upstream, não pelo gateway.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
}
