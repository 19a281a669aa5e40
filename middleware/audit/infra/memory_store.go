package infra

import (
	"context"
	"slices"
	"sync"
	"time"

	"identity-gateway/middleware/audit/domain"
)

// MemoryStore guarda eventos em memória. Útil para testes e desenvolvimento;
// não expira nada.
type MemoryStore struct {
	mu     sync.RWMutex
	events []domain.SecurityEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, ev domain.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *MemoryStore) FindRecent(_ context.Context, page domain.Page) (domain.EventPage, error) {
	page = page.Normalize()
	all := s.filter(func(domain.SecurityEvent) bool { return true })

	out := domain.EventPage{Number: page.Number, Size: page.Size, Total: int64(len(all))}
	start := min(page.Offset(), len(all))
	end := min(start+page.Size, len(all))
	out.Events = all[start:end]
	return out, nil
}

func (s *MemoryStore) FindBySubject(_ context.Context, subject string) ([]domain.SecurityEvent, error) {
	return s.filter(func(ev domain.SecurityEvent) bool { return ev.Subject == subject }), nil
}

func (s *MemoryStore) FindByType(_ context.Context, t domain.EventType) ([]domain.SecurityEvent, error) {
	return s.filter(func(ev domain.SecurityEvent) bool { return ev.Type == t }), nil
}

func (s *MemoryStore) FindByOrigin(_ context.Context, origin string) ([]domain.SecurityEvent, error) {
	return s.filter(func(ev domain.SecurityEvent) bool { return ev.Origin == origin }), nil
}

func (s *MemoryStore) FindBetween(_ context.Context, from, to time.Time) ([]domain.SecurityEvent, error) {
	return s.filter(func(ev domain.SecurityEvent) bool {
		return !ev.Timestamp.Before(from) && !ev.Timestamp.After(to)
	}), nil
}

func (s *MemoryStore) CountByTypeSince(_ context.Context, t domain.EventType, since time.Time) (int64, error) {
	return s.count(func(ev domain.SecurityEvent) bool {
		return ev.Type == t && ev.Timestamp.After(since)
	}), nil
}

func (s *MemoryStore) CountBySubjectAndTypeSince(_ context.Context, subject string, t domain.EventType, since time.Time) (int64, error) {
	return s.count(func(ev domain.SecurityEvent) bool {
		return ev.Subject == subject && ev.Type == t && ev.Timestamp.After(since)
	}), nil
}

// filter devolve uma cópia, do mais recente para o mais antigo.
func (s *MemoryStore) filter(keep func(domain.SecurityEvent) bool) []domain.SecurityEvent {
	s.mu.RLock()
	out := make([]domain.SecurityEvent, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		if keep(s.events[i]) {
			out = append(out, s.events[i])
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b domain.SecurityEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

func (s *MemoryStore) count(keep func(domain.SecurityEvent) bool) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, ev := range s.events {
		if keep(ev) {
			n++
		}
	}
	return n
}
