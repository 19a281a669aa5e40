package infra

import (
	"context"
	"testing"
	"time"

	"identity-gateway/middleware/audit/domain"
)

var t0 = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func seedEvents() []domain.SecurityEvent {
	return []domain.SecurityEvent{
		{ID: "00000000-0000-4000-8000-000000000001", Type: domain.AuthenticationSuccess, Subject: "ana", Origin: "10.0.0.1", Details: "authorities: ROLE_USER", Timestamp: t0},
		{ID: "00000000-0000-4000-8000-000000000002", Type: domain.AuthenticationFailure, Subject: "ana", Origin: "10.0.0.2", Details: "Failure reason: bad", Timestamp: t0.Add(time.Minute)},
		{ID: "00000000-0000-4000-8000-000000000003", Type: domain.RateLimitExceeded, Subject: "unknown", Origin: "10.0.0.1", Details: "Endpoint: /login", Timestamp: t0.Add(2 * time.Minute)},
		{ID: "00000000-0000-4000-8000-000000000004", Type: domain.AuthenticationFailure, Subject: "bob", Origin: "10.0.0.3", Details: "Failure reason: expired", Timestamp: t0.Add(3 * time.Minute)},
	}
}

func ids(events []domain.SecurityEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID[len(ev.ID)-1:]
	}
	return out
}

func assertIDs(t *testing.T, what string, events []domain.SecurityEvent, want ...string) {
	t.Helper()
	got := ids(events)
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", what, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %v, got %v", what, want, got)
		}
	}
}

// runStoreContract valida o comportamento comum a todos os stores.
func runStoreContract(t *testing.T, store domain.Store) {
	t.Helper()
	ctx := context.Background()

	for _, ev := range seedEvents() {
		if err := store.Save(ctx, ev); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	page, err := store.FindRecent(ctx, domain.Page{Number: 0, Size: 2})
	if err != nil {
		t.Fatalf("FindRecent: %v", err)
	}
	if page.Total != 4 || page.Size != 2 {
		t.Fatalf("unexpected page meta: %+v", page)
	}
	assertIDs(t, "page 0", page.Events, "4", "3")

	page, _ = store.FindRecent(ctx, domain.Page{Number: 1, Size: 2})
	assertIDs(t, "page 1", page.Events, "2", "1")

	page, _ = store.FindRecent(ctx, domain.Page{Number: 5, Size: 2})
	assertIDs(t, "page past end", page.Events)

	bySubject, err := store.FindBySubject(ctx, "ana")
	if err != nil {
		t.Fatalf("FindBySubject: %v", err)
	}
	assertIDs(t, "by subject", bySubject, "2", "1")

	byType, err := store.FindByType(ctx, domain.AuthenticationFailure)
	if err != nil {
		t.Fatalf("FindByType: %v", err)
	}
	assertIDs(t, "by type", byType, "4", "2")

	byOrigin, err := store.FindByOrigin(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("FindByOrigin: %v", err)
	}
	assertIDs(t, "by origin", byOrigin, "3", "1")

	between, err := store.FindBetween(ctx, t0.Add(time.Minute), t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("FindBetween: %v", err)
	}
	assertIDs(t, "between", between, "3", "2")

	if !between[0].Timestamp.Equal(t0.Add(2 * time.Minute)) {
		t.Fatalf("timestamp not preserved: %v", between[0].Timestamp)
	}
	if between[0].Type != domain.RateLimitExceeded || between[0].Details != "Endpoint: /login" {
		t.Fatalf("fields not preserved: %+v", between[0])
	}

	n, err := store.CountByTypeSince(ctx, domain.AuthenticationFailure, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("CountByTypeSince: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected strict since count 1, got %d", n)
	}

	n, err = store.CountBySubjectAndTypeSince(ctx, "ana", domain.AuthenticationFailure, t0)
	if err != nil {
		t.Fatalf("CountBySubjectAndTypeSince: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	runStoreContract(t, store)
}

func TestSQLiteStore_DuplicateIDFails(t *testing.T) {
	store, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	ev := seedEvents()[0]
	if err := store.Save(context.Background(), ev); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(context.Background(), ev); err == nil {
		t.Fatalf("expected primary key violation")
	}
}

func TestChanPool_BoundsConcurrency(t *testing.T) {
	pool := NewChanPool(1)

	release, ok := pool.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, ok := pool.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to time out")
	}

	release()
	release2, ok := pool.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected acquire after release")
	}
	release2()
}
