// Package domain define a derivação de chave por tenant e os contratos do
// object store, sem dependência de net/http nem do SDK S3.
package domain
