package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica o cliente limitado (ex: IP derivado, API key).
type Key string

// Limiter é um contador de janela fixa por chave.
//
// Allow incrementa o contador da janela atual e informa se a requisição cabe
// no limite. O contador continua subindo depois do limite dentro da mesma
// janela: quem precisa de cota restante usa Remaining, que já vem limitado a 0.
type Limiter interface {
	Allow(Key) bool
	Remaining(Key) int
	ResetSeconds(Key) int
	Limit() int
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Pode ser 0 quando a janela está prestes a virar.
	RetryAfter time.Duration
}
