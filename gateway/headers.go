package gateway

import (
	"net/http"
	"strings"
)

// HeaderOptions configura o middleware de headers transversais.
type HeaderOptions struct {
	// AllowedOrigins é a allow-list explícita de origens para CORS.
	// Nunca usamos "*": as respostas podem envolver credenciais.
	AllowedOrigins []string
}

const (
	corsMethods = "GET, PUT, POST, DELETE, OPTIONS"
	corsHeaders = "Authorization, Content-Type, X-Session-Id"
	corsMaxAge  = "86400"
)

// Headers aplica em toda resposta os headers de segurança e, quando a origem
// da requisição está na allow-list, os headers de CORS. Preflight (OPTIONS)
// é respondido na borda, sem chegar aos handlers.
func Headers(opts HeaderOptions) func(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, o := range opts.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			origin := strings.TrimRight(r.Header.Get("Origin"), "/")
			if origin != "" {
				// Vary sempre que a resposta depende da origem, inclusive
				// quando negamos (para caches intermediários).
				h.Add("Vary", "Origin")
				if _, ok := allowed[origin]; ok {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Set("Access-Control-Allow-Methods", corsMethods)
					h.Set("Access-Control-Allow-Headers", corsHeaders)
					h.Set("Access-Control-Max-Age", corsMaxAge)
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
