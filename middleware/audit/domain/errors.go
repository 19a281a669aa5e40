package domain

import "errors"

var (
	// ErrPersistence envolve qualquer falha ao gravar um evento.
	// Nunca chega ao chamador dos métodos de escrita do Recorder.
	ErrPersistence = errors.New("security event persistence failed")

	ErrInvalidEventType = errors.New("invalid security event type")
)
