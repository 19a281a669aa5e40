// Package application contém o caso de uso do rate limit: transformar o estado
// do limiter em uma decisão (allow/deny + cota restante + retry-after).
//
// Ele depende apenas do pacote domain e não conhece net/http.
package application
