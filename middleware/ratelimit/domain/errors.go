package domain

import "errors"

var (
	// ErrInvalidConfig indica parâmetros não positivos na construção do limiter.
	// É fatal para a inicialização.
	ErrInvalidConfig = errors.New("invalid rate limiter config")

	// ErrShutdownTimeout indica que a limpeza em andamento não terminou dentro
	// do prazo de Shutdown e foi abandonada.
	ErrShutdownTimeout = errors.New("rate limiter shutdown timed out")
)
