package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"identity-gateway/middleware/audit/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS security_events (
	id          TEXT PRIMARY KEY,
	event_type  TEXT    NOT NULL,
	username    TEXT    NOT NULL,
	ip_address  TEXT    NOT NULL,
	details     TEXT    NOT NULL DEFAULT '',
	occurred_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_security_event_username ON security_events (username);
CREATE INDEX IF NOT EXISTS idx_security_event_timestamp ON security_events (occurred_at);
CREATE INDEX IF NOT EXISTS idx_security_event_type ON security_events (event_type);
`

const sqliteSelectEvents = `SELECT id, event_type, username, ip_address, details, occurred_at FROM security_events`

// SQLiteStore grava eventos em SQLite (arquivo local ou ":memory:").
// occurred_at é guardado em nanossegundos Unix (UTC).
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite abre o banco e aplica o schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// um único writer evita SQLITE_BUSY e mantém ":memory:" numa só conexão
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Save(ctx context.Context, ev domain.SecurityEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO security_events (id, event_type, username, ip_address, details, occurred_at)
		VALUES (?,?,?,?,?,?)
	`, ev.ID, string(ev.Type), ev.Subject, ev.Origin, ev.Details, ev.Timestamp.UnixNano())
	return err
}

func (s *SQLiteStore) FindRecent(ctx context.Context, page domain.Page) (domain.EventPage, error) {
	page = page.Normalize()
	out := domain.EventPage{Number: page.Number, Size: page.Size}

	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM security_events`).Scan(&out.Total); err != nil {
		return out, err
	}
	events, err := s.query(ctx, sqliteSelectEvents+` ORDER BY occurred_at DESC LIMIT ? OFFSET ?`, page.Size, page.Offset())
	if err != nil {
		return out, err
	}
	out.Events = events
	return out, nil
}

func (s *SQLiteStore) FindBySubject(ctx context.Context, subject string) ([]domain.SecurityEvent, error) {
	return s.query(ctx, sqliteSelectEvents+` WHERE username=? ORDER BY occurred_at DESC`, subject)
}

func (s *SQLiteStore) FindByType(ctx context.Context, t domain.EventType) ([]domain.SecurityEvent, error) {
	return s.query(ctx, sqliteSelectEvents+` WHERE event_type=? ORDER BY occurred_at DESC`, string(t))
}

func (s *SQLiteStore) FindByOrigin(ctx context.Context, origin string) ([]domain.SecurityEvent, error) {
	return s.query(ctx, sqliteSelectEvents+` WHERE ip_address=? ORDER BY occurred_at DESC`, origin)
}

func (s *SQLiteStore) FindBetween(ctx context.Context, from, to time.Time) ([]domain.SecurityEvent, error) {
	return s.query(ctx, sqliteSelectEvents+` WHERE occurred_at BETWEEN ? AND ? ORDER BY occurred_at DESC`, from.UnixNano(), to.UnixNano())
}

func (s *SQLiteStore) CountByTypeSince(ctx context.Context, t domain.EventType, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM security_events WHERE event_type=? AND occurred_at > ?`,
		string(t), since.UnixNano()).Scan(&n)
	return n, err
}

func (s *SQLiteStore) CountBySubjectAndTypeSince(ctx context.Context, subject string, t domain.EventType, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM security_events WHERE username=? AND event_type=? AND occurred_at > ?`,
		subject, string(t), since.UnixNano()).Scan(&n)
	return n, err
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]domain.SecurityEvent, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SecurityEvent{}
	for rows.Next() {
		var (
			ev        domain.SecurityEvent
			eventType string
			nanos     int64
		)
		if err := rows.Scan(&ev.ID, &eventType, &ev.Subject, &ev.Origin, &ev.Details, &nanos); err != nil {
			return nil, err
		}
		ev.Type = domain.EventType(eventType)
		ev.Timestamp = time.Unix(0, nanos).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}
