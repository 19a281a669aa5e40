package domain

import "testing"

func TestAuthority_Kind(t *testing.T) {
	if got := Authority("ROLE_ADMIN").Kind(); got != KindRole {
		t.Fatalf("expected role, got %v", got)
	}
	if got := Authority("SCOPE_read").Kind(); got != KindScope {
		t.Fatalf("expected scope, got %v", got)
	}
	if got := Authority("admin").Kind(); got != KindUnknown {
		t.Fatalf("expected unknown, got %v", got)
	}
}

func TestAuthorities_SetSemantics(t *testing.T) {
	set := NewAuthorities("ROLE_B", "ROLE_A", "ROLE_B")
	if len(set) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(set))
	}
	if got := set.String(); got != "ROLE_A, ROLE_B" {
		t.Fatalf("unexpected string %q", got)
	}
	if !set.HasAny("ROLE_X", "ROLE_A") {
		t.Fatalf("expected HasAny to match ROLE_A")
	}
	if set.HasAny("ROLE_X") {
		t.Fatalf("unexpected match")
	}
}

func TestClaimSet_String(t *testing.T) {
	c := ClaimSet{"username": "ana", "email": "", "n": 1}
	if v, ok := c.String("username"); !ok || v != "ana" {
		t.Fatalf("expected ana, got %q %v", v, ok)
	}
	if _, ok := c.String("email"); ok {
		t.Fatalf("empty string must not count")
	}
	if _, ok := c.String("n"); ok {
		t.Fatalf("non string must not count")
	}
}
