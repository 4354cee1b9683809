// Package infra contém a implementação concreta do object store (S3-compatível)
// para os contratos do pacote domain.
package infra
