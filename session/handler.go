// Package session expõe o ator de sessão efêmera: estado durável por
// sessionId com transições serializadas e expiração agendada.
package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"storage-gateway/gateway"
	"storage-gateway/session/application"
	"storage-gateway/session/domain"
)

// Handler traduz POST /session/{init,verify,invalidate}.
//
// O session id viaja no header X-Session-Id ou em ?session=; cada id endereça
// exatamente um registro.
type Handler struct {
	Service application.Service
	Logger  *zap.Logger
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /session/init", h.init)
	mux.HandleFunc("POST /session/verify", h.verify)
	mux.HandleFunc("POST /session/invalidate", h.invalidate)
}

type initResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

type verifyResponse struct {
	Valid     bool   `json:"valid"`
	SessionID string `json:"sessionId,omitempty"`
}

func sessionID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Session-Id")); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("session"))
}

func (h *Handler) init(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Init(r.Context(), sessionID(r))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	gateway.WriteJSON(w, http.StatusOK, initResponse{SessionID: rec.ID, CreatedAt: rec.CreatedAt})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	valid, rec, err := h.Service.Verify(r.Context(), sessionID(r))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	resp := verifyResponse{Valid: valid}
	if valid {
		resp.SessionID = rec.ID
	}
	gateway.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Invalidate(r.Context(), sessionID(r)); err != nil {
		h.writeErr(w, err)
		return
	}
	gateway.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		gateway.WriteError(w, http.StatusBadRequest, gateway.CodeValidationError, "missing or malformed session id")
	case errors.Is(err, domain.ErrNotFound):
		gateway.WriteError(w, http.StatusNotFound, gateway.CodeNotFound, "session not found")
	default:
		if h.Logger != nil {
			h.Logger.Error("session store failure", zap.Error(err))
		}
		gateway.WriteInternalError(w)
	}
}
