package domain

import (
	"context"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// Page é uma requisição de página (base 0).
type Page struct {
	Number int
	Size   int
}

// Normalize aplica os limites de paginação.
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int { return p.Number * p.Size }

type EventPage struct {
	Events []SecurityEvent `json:"content"`
	Number int             `json:"number"`
	Size   int             `json:"size"`
	Total  int64           `json:"totalElements"`
}

// Store é o repositório append-only de eventos.
//
// Todas as consultas devolvem do mais recente para o mais antigo.
// FindBetween inclui os dois extremos; as contagens usam "depois de" estrito.
type Store interface {
	Save(ctx context.Context, ev SecurityEvent) error

	FindRecent(ctx context.Context, page Page) (EventPage, error)
	FindBySubject(ctx context.Context, subject string) ([]SecurityEvent, error)
	FindByType(ctx context.Context, t EventType) ([]SecurityEvent, error)
	FindByOrigin(ctx context.Context, origin string) ([]SecurityEvent, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]SecurityEvent, error)

	CountByTypeSince(ctx context.Context, t EventType, since time.Time) (int64, error)
	CountBySubjectAndTypeSince(ctx context.Context, subject string, t EventType, since time.Time) (int64, error)
}
