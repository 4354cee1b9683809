// Package migrations embute os arquivos SQL aplicados no startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
