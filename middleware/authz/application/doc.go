// Package application converte claims verificados em authorities.
//
// Extract é uma função pura: não faz I/O, não bloqueia e não guarda estado.
package application
