// Package domain define o contrato do cache imutável de conteúdo endereçado
// por hash, sem dependência de net/http nem de Redis.
package domain
