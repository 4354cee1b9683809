package gateway

import (
	"encoding/json"
	"net/http"
)

// Códigos de erro expostos no corpo JSON. O contrato é sempre
// {"error": <code>, "message": <humano>}, nunca corpo vazio em falha.
const (
	CodeRateLimited         = "rate_limited"
	CodeUnauthorized        = "unauthorized"
	CodeNotFound            = "not_found"
	CodeValidationError     = "validation_error"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeInternalError       = "internal_error"
)

// ErrorBody é o corpo padrão de erro do gateway.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON serializa v como resposta JSON com o status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError escreve o corpo de erro padrão.
//
// Para CodeInternalError a mensagem deve ser genérica: detalhes vão para o
// log do servidor, nunca para o cliente.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: code, Message: message})
}

// WriteInternalError é o atalho para falhas inesperadas, com mensagem fixa.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
