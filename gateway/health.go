package gateway

import (
	"net/http"
	"time"
)

type healthBody struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthHandler responde o health check. Sem auth e fora do rate limit
// (a isenção é configurada no wiring do middleware, não aqui).
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, healthBody{Status: "ok", Timestamp: time.Now().UTC()})
	})
}
