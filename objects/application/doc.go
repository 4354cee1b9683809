// Package application contém os casos de uso do roteador de chaves por tenant
// (put derivado, put por chave crua, get, list paginado, delete).
//
// Depende apenas do pacote domain; autorização e HTTP ficam no adapter.
package application
