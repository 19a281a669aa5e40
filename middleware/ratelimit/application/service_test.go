package application

import (
	"testing"
	"time"

	"identity-gateway/middleware/ratelimit/domain"
)

type fakeLimiter struct {
	allow     bool
	remaining int
	reset     int
	calls     int
}

func (f *fakeLimiter) Allow(domain.Key) bool {
	f.calls++
	return f.allow
}
func (f *fakeLimiter) Remaining(domain.Key) int    { return f.remaining }
func (f *fakeLimiter) ResetSeconds(domain.Key) int { return f.reset }
func (f *fakeLimiter) Limit() int                  { return 5 }

func TestService_Decide_AllowsWhenNoLimiter(t *testing.T) {
	svc := Service{}
	dec := svc.Decide("k")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_AllowsWhenLimiterAllows(t *testing.T) {
	lim := &fakeLimiter{allow: true, remaining: 3, reset: 40}
	dec := Service{Limiter: lim}.Decide("k")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.Remaining != 3 || dec.Limit != 5 {
		t.Fatalf("unexpected quota in decision: %+v", dec)
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected no RetryAfter when allowed, got %s", dec.RetryAfter)
	}
	if lim.calls != 1 {
		t.Fatalf("expected exactly one Allow call, got %d", lim.calls)
	}
}

func TestService_Decide_BlocksWithResetSeconds(t *testing.T) {
	lim := &fakeLimiter{allow: false, remaining: 0, reset: 42}
	dec := Service{Limiter: lim}.Decide("k")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 42*time.Second {
		t.Fatalf("expected RetryAfter=42s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_BlocksWithZeroResetAtWindowEdge(t *testing.T) {
	lim := &fakeLimiter{allow: false, reset: 0}
	dec := Service{Limiter: lim}.Decide("k")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0, got %s", dec.RetryAfter)
	}
}
