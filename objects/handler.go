package objects

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"storage-gateway/auth"
	"storage-gateway/gateway"
	"storage-gateway/objects/application"
	"storage-gateway/objects/domain"
)

// maxUploadBytes limita o corpo aceito nos uploads.
const maxUploadBytes = 100 << 20

const immutableCacheControl = "public, max-age=31536000, immutable"

// Handler traduz a superfície HTTP de /objects/* para os casos de uso.
//
// put/putRaw/delete/list exigem bearer credential; GET por chave exata é
// deliberadamente aberto (a chave funciona como capability token).
type Handler struct {
	Service application.Service
	Auth    *auth.Verifier
	Logger  *zap.Logger
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /objects/put", h.put)
	mux.HandleFunc("POST /objects/list", h.list)
	mux.HandleFunc("PUT /objects/{key...}", h.putRaw)
	mux.HandleFunc("GET /objects/{key...}", h.get)
	mux.HandleFunc("DELETE /objects/{key...}", h.delete)
}

type putRequest struct {
	Data        string            `json:"data"`
	FileName    string            `json:"fileName"`
	UserID      string            `json:"userId"`
	OrgSlug     string            `json:"orgSlug,omitempty"`
	IsShared    bool              `json:"isShared,omitempty"`
	FolderPath  string            `json:"folderPath,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type keyResponse struct {
	Key string `json:"key"`
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Authorize(r); err != nil {
		h.writeErr(w, err)
		return
	}

	var req putRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			gateway.WriteError(w, http.StatusRequestEntityTooLarge, gateway.CodeValidationError, "body exceeds upload limit")
			return
		}
		gateway.WriteError(w, http.StatusBadRequest, gateway.CodeValidationError, "malformed JSON body")
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		gateway.WriteError(w, http.StatusBadRequest, gateway.CodeValidationError, "data must be base64")
		return
	}

	key, err := h.Service.Put(r.Context(), application.PutInput{
		Data:        data,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
		Routing: domain.RoutingContext{
			UserID:     req.UserID,
			OrgSlug:    req.OrgSlug,
			IsShared:   req.IsShared,
			FolderPath: req.FolderPath,
		},
	})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	gateway.WriteJSON(w, http.StatusCreated, keyResponse{Key: key})
}

func (h *Handler) putRaw(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Authorize(r); err != nil {
		h.writeErr(w, err)
		return
	}

	// MaxBytesReader em vez de LimitReader: corpo acima do teto precisa virar
	// erro explícito, nunca um objeto truncado gravado em silêncio.
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			gateway.WriteError(w, http.StatusRequestEntityTooLarge, gateway.CodeValidationError, "body exceeds upload limit")
			return
		}
		gateway.WriteError(w, http.StatusBadRequest, gateway.CodeValidationError, "unreadable body")
		return
	}

	key, err := h.Service.PutRaw(r.Context(), r.PathValue("key"), data, r.Header.Get("Content-Type"), metadataFromHeaders(r.Header))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	gateway.WriteJSON(w, http.StatusCreated, keyResponse{Key: key})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	obj, err := h.Service.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		h.writeErr(w, err)
		return
	}

	hd := w.Header()
	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	hd.Set("Content-Type", ct)
	hd.Set("Content-Length", strconv.Itoa(len(obj.Data)))
	hd.Set("Cache-Control", immutableCacheControl)
	if obj.ETag != "" {
		hd.Set("ETag", obj.ETag)
	}
	for k, v := range obj.Metadata {
		hd.Set("X-Meta-"+http.CanonicalHeaderKey(k), v)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Authorize(r); err != nil {
		h.writeErr(w, err)
		return
	}
	if err := h.Service.Delete(r.Context(), r.PathValue("key")); err != nil {
		h.writeErr(w, err)
		return
	}
	gateway.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int32  `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

type listResponse struct {
	Objects   []domain.ObjectInfo `json:"objects"`
	Truncated bool                `json:"truncated"`
	Cursor    string              `json:"cursor,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Authorize(r); err != nil {
		h.writeErr(w, err)
		return
	}

	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, gateway.CodeValidationError, "malformed JSON body")
		return
	}

	page, err := h.Service.List(r.Context(), req.Prefix, req.Cursor, req.Limit)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	gateway.WriteJSON(w, http.StatusOK, listResponse{
		Objects:   page.Objects,
		Truncated: page.Truncated,
		Cursor:    page.Cursor,
	})
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		gateway.WriteError(w, http.StatusUnauthorized, gateway.CodeUnauthorized, "missing or invalid credential")
	case errors.Is(err, domain.ErrNotFound):
		gateway.WriteError(w, http.StatusNotFound, gateway.CodeNotFound, "object not found")
	case errors.Is(err, domain.ErrInvalid):
		gateway.WriteError(w, http.StatusBadRequest, gateway.CodeValidationError, err.Error())
	default:
		if h.Logger != nil {
			h.Logger.Error("object store failure", zap.Error(err))
		}
		gateway.WriteInternalError(w)
	}
}

// metadataFromHeaders espelha X-Meta-* do PUT cru como metadados do objeto.
func metadataFromHeaders(h http.Header) map[string]string {
	var md map[string]string
	for k, vs := range h {
		const prefix = "X-Meta-"
		if len(k) > len(prefix) && k[:len(prefix)] == prefix && len(vs) > 0 {
			if md == nil {
				md = make(map[string]string)
			}
			md[k[len(prefix):]] = vs[0]
		}
	}
	return md
}
