// Package cache implementa o proxy de cache imutável para leituras
// endereçadas por conteúdo (CID): consulta o cache de borda antes de bater no
// gateway de conteúdo upstream e popula o cache de forma assíncrona no miss.
package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storage-gateway/cache/domain"
	"storage-gateway/gateway"
)

const (
	immutableCacheControl = "public, max-age=31536000, immutable"

	// maxCacheableBytes evita estourar o Redis com payloads gigantes;
	// acima disso a resposta é servida mas não cacheada.
	maxCacheableBytes = 64 << 20
)

// fetchHeaders é a allow-list de headers repassados ao upstream.
var fetchHeaders = []string{"Accept", "Accept-Encoding"}

// Proxy serve GET /cache/{contentId}.
type Proxy struct {
	Store    domain.Store
	Upstream string // base do gateway de conteúdo; o CID é anexado ao final

	// Client/FetchTimeout governam só o fetch de miss — um deadline próprio,
	// separado dos timeouts do servidor HTTP do gateway.
	Client       *http.Client
	FetchTimeout time.Duration

	Logger *zap.Logger

	// onPopulated é chamado após a população assíncrona (hook de teste).
	onPopulated func(err error)
}

func (p *Proxy) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /cache/{contentId}", p.serve)
}

func (p *Proxy) serve(w http.ResponseWriter, r *http.Request) {
	cid := strings.TrimSpace(r.PathValue("contentId"))
	if cid == "" {
		gateway.WriteError(w, http.StatusBadRequest, gateway.CodeValidationError, "content id is required")
		return
	}

	ent, hit, err := p.Store.Get(r.Context(), cid)
	if err != nil && p.Logger != nil {
		// cache quebrado vira miss, nunca erro para o cliente
		p.Logger.Warn("edge cache read failed", zap.Error(err))
	}
	if hit {
		p.writeContent(w, cid, ent, "HIT")
		return
	}

	ent, status, err := p.fetch(r, cid)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Warn("upstream fetch failed", zap.String("cid", cid), zap.Error(err))
		}
		gateway.WriteError(w, http.StatusBadGateway, gateway.CodeUpstreamUnavailable, "content gateway unreachable")
		return
	}
	if status != http.StatusOK {
		// propaga o status do upstream num corpo estruturado; falha nunca é cacheada
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		gateway.WriteError(w, status, gateway.CodeUpstreamUnavailable,
			fmt.Sprintf("content gateway returned %d", status))
		return
	}

	p.writeContent(w, cid, ent, "MISS")

	// população fire-and-forget: o cliente nunca espera a escrita no cache
	if len(ent.Body) <= maxCacheableBytes {
		go p.populate(cid, ent)
	}
}

func (p *Proxy) fetch(r *http.Request, cid string) (domain.Entry, int, error) {
	timeout := p.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	url := strings.TrimRight(p.Upstream, "/") + "/" + cid
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Entry{}, 0, err
	}
	for _, h := range fetchHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.Entry{}, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.Entry{}, resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Entry{}, 0, err
	}
	return domain.Entry{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, http.StatusOK, nil
}

func (p *Proxy) writeContent(w http.ResponseWriter, cid string, ent domain.Entry, served string) {
	h := w.Header()
	ct := ent.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	h.Set("Content-Length", strconv.Itoa(len(ent.Body)))
	h.Set("Cache-Control", immutableCacheControl)
	h.Set("X-Cache", served)
	h.Set("X-Content-Source", "cache-proxy")
	h.Set("X-Content-Id", cid)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ent.Body)
}

// populate grava o miss no cache com contexto próprio, já desacoplado da
// requisição que o originou. Falha aqui é logada e esquecida: a resposta
// já foi entregue.
func (p *Proxy) populate(cid string, ent domain.Entry) {
	timeout := p.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := p.Store.Set(ctx, cid, ent)
	if err != nil && p.Logger != nil {
		p.Logger.Warn("edge cache populate failed", zap.String("cid", cid), zap.Error(err))
	}
	if p.onPopulated != nil {
		p.onPopulated(err)
	}
}
