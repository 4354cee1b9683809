package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Derivação de chave de armazenamento por tenant.
//
// Estrutura invariante da chave:
//
//	personal/{userId}/[folder/]{timestampMs}-{filenameSanitizado}
//	orgs/{orgSlug}/shared/[folder/]{timestampMs}-{filenameSanitizado}
//	orgs/{orgSlug}/members/{userId}/[folder/]{timestampMs}-{filenameSanitizado}
//
// A derivação é pura e determinística dado (filename, contexto, instante).
// Não há read-before-write para checar colisão: o prefixo de timestamp em
// milissegundos torna colisões desprezíveis, e escrita no mesmo milissegundo
// com nome idêntico resolve por last-write-wins (caso raro e assumido).

// RoutingContext são as coordenadas de upload que definem o escopo da chave.
type RoutingContext struct {
	UserID     string
	OrgSlug    string
	IsShared   bool
	FolderPath string
}

// MaxFilenameLen limita o nome sanitizado dentro da chave.
const MaxFilenameLen = 200

// Validate checa o contexto antes da derivação. Segmentos de identidade não
// podem carregar separadores: quebrariam o escopo da chave.
func (c RoutingContext) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalid)
	}
	if !safeSegment(c.UserID) {
		return fmt.Errorf("%w: userId has invalid characters", ErrInvalid)
	}
	if c.OrgSlug != "" && !safeSegment(c.OrgSlug) {
		return fmt.Errorf("%w: orgSlug has invalid characters", ErrInvalid)
	}
	if c.IsShared && c.OrgSlug == "" {
		return fmt.Errorf("%w: isShared requires orgSlug", ErrInvalid)
	}
	return nil
}

// DeriveKey monta a chave de armazenamento para um upload.
func DeriveKey(filename string, c RoutingContext, now time.Time) string {
	var prefix string
	switch {
	case c.OrgSlug != "" && c.IsShared:
		prefix = "orgs/" + c.OrgSlug + "/shared"
	case c.OrgSlug != "":
		prefix = "orgs/" + c.OrgSlug + "/members/" + c.UserID
	default:
		prefix = "personal/" + c.UserID
	}

	name := fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeFilename(filename))

	if folder := NormalizeFolder(c.FolderPath); folder != "" {
		return prefix + "/" + folder + "/" + name
	}
	return prefix + "/" + name
}

// SanitizeFilename restringe o nome ao conjunto alfanumérico + "._-"
// (demais viram "_") e corta em MaxFilenameLen.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	n := 0
	for _, r := range name {
		if n == MaxFilenameLen {
			break
		}
		if keyRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}

// NormalizeFolder normaliza o caminho de pasta: remove separadores das pontas,
// colapsa separadores duplicados e restringe o charset (mantendo "/").
// "/" ou vazio significam sem pasta.
func NormalizeFolder(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	var b strings.Builder
	b.Grow(len(path))
	for _, r := range path {
		if r == '/' || keyRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func keyRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-'
}

func safeSegment(s string) bool {
	for _, r := range s {
		if !keyRune(r) {
			return false
		}
	}
	return true
}

// Scope é o contexto de armazenamento reconstruído a partir de uma chave.
type Scope struct {
	Context  string // "personal" ou "organization"
	UserID   string
	OrgSlug  string
	IsShared bool
}

// ParseKey extrai o escopo de uma chave existente (auditoria/suporte).
// Retorna ok=false para chaves fora do formato conhecido.
func ParseKey(key string) (Scope, bool) {
	parts := strings.Split(key, "/")
	switch {
	case len(parts) >= 3 && parts[0] == "personal":
		return Scope{Context: "personal", UserID: parts[1]}, true
	case len(parts) >= 4 && parts[0] == "orgs" && parts[2] == "shared":
		return Scope{Context: "organization", OrgSlug: parts[1], IsShared: true}, true
	case len(parts) >= 5 && parts[0] == "orgs" && parts[2] == "members":
		return Scope{Context: "organization", OrgSlug: parts[1], UserID: parts[3]}, true
	}
	return Scope{}, false
}
