package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"identity-gateway/middleware/audit/domain"
)

// Schema cria a tabela e os índices de consulta (subject, tempo, tipo).
const Schema = `
CREATE TABLE IF NOT EXISTS security_events (
	id          UUID PRIMARY KEY,
	event_type  VARCHAR(50)   NOT NULL,
	username    VARCHAR(255)  NOT NULL,
	ip_address  VARCHAR(255)  NOT NULL,
	details     VARCHAR(2000) NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ   NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_security_event_username ON security_events (username);
CREATE INDEX IF NOT EXISTS idx_security_event_timestamp ON security_events (occurred_at);
CREATE INDEX IF NOT EXISTS idx_security_event_type ON security_events (event_type);
`

const pgSelectEvents = `SELECT id::text, event_type, username, ip_address, details, occurred_at FROM security_events`

type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore grava eventos em PostgreSQL. Em produção DB é um *pgxpool.Pool.
type PostgresStore struct {
	DB pgDB
}

func NewPostgresStore(db pgDB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// Migrate aplica Schema (idempotente).
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate security_events: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, ev domain.SecurityEvent) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO security_events (id, event_type, username, ip_address, details, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, ev.ID, string(ev.Type), ev.Subject, ev.Origin, ev.Details, ev.Timestamp.UTC())
	return err
}

func (s *PostgresStore) FindRecent(ctx context.Context, page domain.Page) (domain.EventPage, error) {
	page = page.Normalize()
	out := domain.EventPage{Number: page.Number, Size: page.Size}

	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM security_events`).Scan(&out.Total); err != nil {
		return out, err
	}
	events, err := s.query(ctx, pgSelectEvents+` ORDER BY occurred_at DESC LIMIT $1 OFFSET $2`, page.Size, page.Offset())
	if err != nil {
		return out, err
	}
	out.Events = events
	return out, nil
}

func (s *PostgresStore) FindBySubject(ctx context.Context, subject string) ([]domain.SecurityEvent, error) {
	return s.query(ctx, pgSelectEvents+` WHERE username=$1 ORDER BY occurred_at DESC`, subject)
}

func (s *PostgresStore) FindByType(ctx context.Context, t domain.EventType) ([]domain.SecurityEvent, error) {
	return s.query(ctx, pgSelectEvents+` WHERE event_type=$1 ORDER BY occurred_at DESC`, string(t))
}

func (s *PostgresStore) FindByOrigin(ctx context.Context, origin string) ([]domain.SecurityEvent, error) {
	return s.query(ctx, pgSelectEvents+` WHERE ip_address=$1 ORDER BY occurred_at DESC`, origin)
}

func (s *PostgresStore) FindBetween(ctx context.Context, from, to time.Time) ([]domain.SecurityEvent, error) {
	return s.query(ctx, pgSelectEvents+` WHERE occurred_at BETWEEN $1 AND $2 ORDER BY occurred_at DESC`, from.UTC(), to.UTC())
}

func (s *PostgresStore) CountByTypeSince(ctx context.Context, t domain.EventType, since time.Time) (int64, error) {
	var n int64
	err := s.DB.QueryRow(ctx, `
		SELECT count(*) FROM security_events WHERE event_type=$1 AND occurred_at > $2
	`, string(t), since.UTC()).Scan(&n)
	return n, err
}

func (s *PostgresStore) CountBySubjectAndTypeSince(ctx context.Context, subject string, t domain.EventType, since time.Time) (int64, error) {
	var n int64
	err := s.DB.QueryRow(ctx, `
		SELECT count(*) FROM security_events WHERE username=$1 AND event_type=$2 AND occurred_at > $3
	`, subject, string(t), since.UTC()).Scan(&n)
	return n, err
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]domain.SecurityEvent, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SecurityEvent{}
	for rows.Next() {
		var (
			ev        domain.SecurityEvent
			eventType string
		)
		if err := rows.Scan(&ev.ID, &eventType, &ev.Subject, &ev.Origin, &ev.Details, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Type = domain.EventType(eventType)
		out = append(out, ev)
	}
	return out, rows.Err()
}
