package application

import (
	"context"
	"time"

	"identity-gateway/middleware/audit/domain"
)

// Consultas: delegação direta ao store, erros devolvidos ao chamador.

// RecentEvents devolve uma página (base 0) do mais recente para o mais antigo.
func (r *Recorder) RecentEvents(ctx context.Context, page, size int) (domain.EventPage, error) {
	return r.store.FindRecent(ctx, domain.Page{Number: page, Size: size}.Normalize())
}

func (r *Recorder) EventsBySubject(ctx context.Context, subject string) ([]domain.SecurityEvent, error) {
	return r.store.FindBySubject(ctx, subject)
}

func (r *Recorder) EventsByType(ctx context.Context, t domain.EventType) ([]domain.SecurityEvent, error) {
	return r.store.FindByType(ctx, t)
}

func (r *Recorder) EventsByOrigin(ctx context.Context, origin string) ([]domain.SecurityEvent, error) {
	return r.store.FindByOrigin(ctx, origin)
}

func (r *Recorder) EventsBetween(ctx context.Context, from, to time.Time) ([]domain.SecurityEvent, error) {
	return r.store.FindBetween(ctx, from, to)
}

func (r *Recorder) CountByTypeSince(ctx context.Context, t domain.EventType, since time.Time) (int64, error) {
	return r.store.CountByTypeSince(ctx, t, since)
}

func (r *Recorder) CountBySubjectAndTypeSince(ctx context.Context, subject string, t domain.EventType, since time.Time) (int64, error) {
	return r.store.CountBySubjectAndTypeSince(ctx, subject, t, since)
}
