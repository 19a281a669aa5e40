package domain

import "time"

// Clock permite injetar o tempo (testes avançam o relógio sem sleep).
type Clock interface {
	Now() time.Time
}

// SystemClock usa o relógio de parede.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
