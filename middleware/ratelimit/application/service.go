package application

import (
	"time"

	"identity-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Limiter domain.Limiter
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}
	}

	allowed := s.Limiter.Allow(key)
	dec := domain.Decision{
		Allowed:   allowed,
		Limit:     s.Limiter.Limit(),
		Remaining: s.Limiter.Remaining(key),
	}
	if !allowed {
		dec.RetryAfter = time.Duration(s.Limiter.ResetSeconds(key)) * time.Second
	}
	return dec
}
