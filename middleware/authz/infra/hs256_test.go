package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"identity-gateway/middleware/authz/domain"
)

var testSecret = []byte("test-secret-with-enough-bytes-000")

func TestHS256Verifier_ValidToken(t *testing.T) {
	v, err := NewHS256Verifier(testSecret, WithIssuer("https://issuer.test"), WithAudience("gateway"))
	if err != nil {
		t.Fatalf("NewHS256Verifier: %v", err)
	}

	raw, err := Sign(testSecret, domain.ClaimSet{
		"sub":         "user-1",
		"iss":         "https://issuer.test",
		"aud":         "gateway",
		"exp":         time.Now().Add(time.Hour).Unix(),
		"custom:role": "admin",
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got, _ := claims.String("sub"); got != "user-1" {
		t.Fatalf("expected sub user-1, got %q", got)
	}
	if got, _ := claims.String("custom:role"); got != "admin" {
		t.Fatalf("expected custom:role admin, got %q", got)
	}
}

func TestHS256Verifier_Expired(t *testing.T) {
	v, _ := NewHS256Verifier(testSecret)
	raw, _ := Sign(testSecret, domain.ClaimSet{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()})

	_, err := v.Verify(context.Background(), raw)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestHS256Verifier_Rejects(t *testing.T) {
	v, _ := NewHS256Verifier(testSecret, WithIssuer("https://issuer.test"))
	future := time.Now().Add(time.Hour).Unix()

	wrongSecret, _ := Sign([]byte("another-secret-another-secret-00"), domain.ClaimSet{"exp": future, "iss": "https://issuer.test"})
	wrongIssuer, _ := Sign(testSecret, domain.ClaimSet{"exp": future, "iss": "https://evil.test"})
	noExp, _ := Sign(testSecret, domain.ClaimSet{"iss": "https://issuer.test"})

	cases := map[string]string{
		"wrong secret": wrongSecret,
		"wrong issuer": wrongIssuer,
		"missing exp":  noExp,
		"garbage":      "not.a.token",
	}
	for name, raw := range cases {
		if _, err := v.Verify(context.Background(), raw); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, domain.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestHS256Verifier_TimeFunc(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	raw, _ := Sign(testSecret, domain.ClaimSet{"exp": issued.Add(time.Minute).Unix()})

	v, _ := NewHS256Verifier(testSecret, WithTimeFunc(func() time.Time { return issued }))
	if _, err := v.Verify(context.Background(), raw); err != nil {
		t.Fatalf("expected valid token at issue time, got %v", err)
	}

	later, _ := NewHS256Verifier(testSecret, WithTimeFunc(func() time.Time { return issued.Add(2 * time.Minute) }))
	if _, err := later.Verify(context.Background(), raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestNewHS256Verifier_RequiresSecret(t *testing.T) {
	if _, err := NewHS256Verifier(nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
