// Package auth valida o bearer credential (JWT HS256) exigido pelas operações
// mutadoras do gateway (put, putRaw, delete) e pela listagem.
//
// GET por chave exata fica de fora de propósito: a chave derivada embute
// entropia suficiente (timestamp + nome sanitizado) para funcionar como
// capability token de links já compartilhados; listar revela a estrutura do
// key-space e por isso sempre exige credencial.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("missing or invalid credential")

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Authorize extrai e valida o token do header Authorization.
func (v *Verifier) Authorize(r *http.Request) error {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ErrUnauthorized
	}
	return v.Verify(strings.TrimSpace(strings.TrimPrefix(h, prefix)))
}

// Verify valida assinatura e expiração de um token bruto.
func (v *Verifier) Verify(raw string) error {
	if raw == "" {
		return ErrUnauthorized
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if !tok.Valid {
		return ErrUnauthorized
	}
	return nil
}

// Mint emite um token assinado com o mesmo segredo. Usado por tooling e testes;
// o gateway em si nunca emite credenciais para clientes.
func (v *Verifier) Mint(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return tok.SignedString(v.secret)
}
