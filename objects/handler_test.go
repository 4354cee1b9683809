package objects

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"storage-gateway/auth"
	"storage-gateway/objects/application"
	"storage-gateway/objects/domain"
)

type memStore struct {
	objects map[string]domain.Object
	page    domain.ListPage
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string]domain.Object)}
}

func (m *memStore) Put(_ context.Context, obj domain.Object) error {
	m.objects[obj.Key] = obj
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (domain.Object, error) {
	obj, ok := m.objects[key]
	if !ok {
		return domain.Object{}, domain.ErrNotFound
	}
	return obj, nil
}

func (m *memStore) List(_ context.Context, _, _ string, _ int32) (domain.ListPage, error) {
	return m.page, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	if _, ok := m.objects[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

const testSecret = "segredo-de-teste"

func newTestHandler(t *testing.T, store *memStore) (*http.ServeMux, string) {
	t.Helper()

	verifier := auth.NewVerifier(testSecret)
	tok, err := verifier.Mint("u1", time.Minute)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}

	h := &Handler{
		Service: application.Service{
			Store: store,
			Now:   func() time.Time { return time.UnixMilli(1756200000000) },
		},
		Auth:   verifier,
		Logger: zap.NewNop(),
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, "Bearer " + tok
}

func TestHandler_PutCreatesRoutedKey(t *testing.T) {
	store := newMemStore()
	mux, bearer := newTestHandler(t, store)

	body, _ := json.Marshal(putRequest{
		Data:        base64.StdEncoding.EncodeToString([]byte("payload")),
		FileName:    "doc.pdf",
		UserID:      "u1",
		ContentType: "application/pdf",
		Metadata:    map[string]string{"origin": "test"},
	})
	r := httptest.NewRequest(http.MethodPost, "http://gw/objects/put", bytes.NewReader(body))
	r.Header.Set("Authorization", bearer)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp keyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if want := "personal/u1/1756200000000-doc.pdf"; resp.Key != want {
		t.Fatalf("expected key %q, got %q", want, resp.Key)
	}
	if obj := store.objects[resp.Key]; string(obj.Data) != "payload" || obj.ContentType != "application/pdf" {
		t.Fatalf("stored object mismatch: %+v", obj)
	}
}

func TestHandler_PutRequiresCredential(t *testing.T) {
	mux, _ := newTestHandler(t, newMemStore())

	r := httptest.NewRequest(http.MethodPost, "http://gw/objects/put", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error != "unauthorized" {
		t.Fatalf("expected unauthorized error body, got %s", w.Body.String())
	}
}

func TestHandler_PutRejectsBadBase64(t *testing.T) {
	mux, bearer := newTestHandler(t, newMemStore())

	body := `{"data":"not base64!!","fileName":"a.txt","userId":"u1"}`
	r := httptest.NewRequest(http.MethodPost, "http://gw/objects/put", strings.NewReader(body))
	r.Header.Set("Authorization", bearer)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandler_GetIsOpenAndServesImmutable(t *testing.T) {
	store := newMemStore()
	store.objects["personal/u1/123-doc.pdf"] = domain.Object{
		Key:         "personal/u1/123-doc.pdf",
		Data:        []byte("conteúdo"),
		ContentType: "application/pdf",
		ETag:        `"e1"`,
		Metadata:    map[string]string{"Origin": "test"},
	}
	mux, _ := newTestHandler(t, store)

	// sem Authorization de propósito
	r := httptest.NewRequest(http.MethodGet, "http://gw/objects/personal/u1/123-doc.pdf", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "conteúdo" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=31536000, immutable" {
		t.Fatalf("unexpected cache-control %q", got)
	}
	if got := w.Header().Get("ETag"); got != `"e1"` {
		t.Fatalf("unexpected etag %q", got)
	}
	if got := w.Header().Get("X-Meta-Origin"); got != "test" {
		t.Fatalf("expected metadata echoed, got %q", got)
	}
}

func TestHandler_GetMissingIs404(t *testing.T) {
	mux, _ := newTestHandler(t, newMemStore())

	r := httptest.NewRequest(http.MethodGet, "http://gw/objects/personal/u1/nope", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandler_PutRawStoresHeaderMetadata(t *testing.T) {
	store := newMemStore()
	mux, bearer := newTestHandler(t, store)

	r := httptest.NewRequest(http.MethodPut, "http://gw/objects/system/config.json", strings.NewReader("{}"))
	r.Header.Set("Authorization", bearer)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Meta-Owner", "u1")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	obj, ok := store.objects["system/config.json"]
	if !ok {
		t.Fatalf("expected object stored under caller key")
	}
	if obj.ContentType != "application/json" {
		t.Fatalf("unexpected content type %q", obj.ContentType)
	}
	if obj.Metadata["Owner"] != "u1" {
		t.Fatalf("expected X-Meta header mapped to metadata, got %+v", obj.Metadata)
	}
}

// zeroReader produz bytes sem fim; o tamanho vem do LimitReader de fora.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestHandler_PutRawRejectsOversizedBody(t *testing.T) {
	store := newMemStore()
	mux, bearer := newTestHandler(t, store)

	// um byte acima do teto: precisa virar 413, nunca um objeto truncado
	body := io.LimitReader(zeroReader{}, maxUploadBytes+1)
	r := httptest.NewRequest(http.MethodPut, "http://gw/objects/system/big.bin", body)
	r.Header.Set("Authorization", bearer)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized body, got %d", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Error != "validation_error" {
		t.Fatalf("expected validation_error body, got %s", w.Body.String())
	}
	if len(store.objects) != 0 {
		t.Fatalf("oversized upload must not store anything, got %d objects", len(store.objects))
	}
}

func TestHandler_GetWithoutContentTypeDefaultsToOctetStream(t *testing.T) {
	store := newMemStore()
	store.objects["personal/u1/123-blob"] = domain.Object{
		Key:  "personal/u1/123-blob",
		Data: []byte("bytes"),
	}
	mux, _ := newTestHandler(t, store)

	r := httptest.NewRequest(http.MethodGet, "http://gw/objects/personal/u1/123-blob", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Fatalf("expected octet-stream fallback, got %q", got)
	}
}

func TestHandler_DeleteRequiresCredential(t *testing.T) {
	store := newMemStore()
	store.objects["personal/u1/1-a.txt"] = domain.Object{Key: "personal/u1/1-a.txt"}
	mux, bearer := newTestHandler(t, store)

	r := httptest.NewRequest(http.MethodDelete, "http://gw/objects/personal/u1/1-a.txt", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credential, got %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodDelete, "http://gw/objects/personal/u1/1-a.txt", nil)
	r.Header.Set("Authorization", bearer)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if _, ok := store.objects["personal/u1/1-a.txt"]; ok {
		t.Fatalf("expected object removed")
	}
}

func TestHandler_ListReturnsCursor(t *testing.T) {
	store := newMemStore()
	store.page = domain.ListPage{
		Objects: []domain.ObjectInfo{
			{Key: "personal/u1/1-a.txt", Size: 10},
			{Key: "personal/u1/2-b.txt", Size: 20},
		},
		Truncated: true,
		Cursor:    "next-token",
	}
	mux, bearer := newTestHandler(t, store)

	body, _ := json.Marshal(listRequest{Prefix: "personal/u1/", Limit: 2})
	r := httptest.NewRequest(http.MethodPost, "http://gw/objects/list", bytes.NewReader(body))
	r.Header.Set("Authorization", bearer)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp listResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Truncated || resp.Cursor != "next-token" || len(resp.Objects) != 2 {
		t.Fatalf("unexpected page %+v", resp)
	}
}
