// Package application contém os casos de uso da sessão (init idempotente,
// verify puro, invalidate terminal) e o sweeper de expiração agendada.
package application
