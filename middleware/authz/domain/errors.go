package domain

import "errors"

var (
	// ErrInvalidInput indica claims ausentes (token nulo) no extrator.
	ErrInvalidInput = errors.New("claims are required")

	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
