// Package domain define o registro de sessão, sua máquina de estados
// (active -> invalidated | expired, ambos terminais) e o contrato de
// persistência com concorrência otimista.
package domain
