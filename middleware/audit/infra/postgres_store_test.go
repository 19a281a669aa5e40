package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"identity-gateway/middleware/audit/domain"
)

type fakePgDB struct {
	execSQL  []string
	execArgs []any
	execErr  error

	querySQL  string
	queryArgs []any
	rows      [][]any
	queryErr  error

	rowSQL  string
	rowArgs []any
	count   int64
}

func (f *fakePgDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append([]any(nil), args...)
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakePgDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.querySQL = sql
	f.queryArgs = append([]any(nil), args...)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{values: f.rows, idx: -1}, nil
}

func (f *fakePgDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.rowSQL = sql
	f.rowArgs = append([]any(nil), args...)
	return fakeCountRow{n: f.count}
}

type fakeCountRow struct{ n int64 }

func (r fakeCountRow) Scan(dest ...any) error {
	p, ok := dest[0].(*int64)
	if !ok {
		return fmt.Errorf("expected *int64, got %T", dest[0])
	}
	*p = r.n
	return nil
}

type fakeRows struct {
	values [][]any
	idx    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.values[r.idx], nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.values)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.values[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("scan arity mismatch: got=%d want=%d", len(dest), len(row))
	}
	for i := range dest {
		switch d := dest[i].(type) {
		case *string:
			*d = row[i].(string)
		case *time.Time:
			*d = row[i].(time.Time)
		default:
			return fmt.Errorf("unsupported scan dest %T", dest[i])
		}
	}
	return nil
}

func TestPostgresStore_Save(t *testing.T) {
	db := &fakePgDB{}
	store := NewPostgresStore(db)

	ev := seedEvents()[1]
	if err := store.Save(context.Background(), ev); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.Contains(db.execSQL[0], "INSERT INTO security_events") {
		t.Fatalf("unexpected sql: %s", db.execSQL[0])
	}
	if len(db.execArgs) != 6 || db.execArgs[1] != "AUTHENTICATION_FAILURE" || db.execArgs[2] != "ana" {
		t.Fatalf("unexpected args: %v", db.execArgs)
	}

	db.execErr = errors.New("connection refused")
	if err := store.Save(context.Background(), ev); err == nil {
		t.Fatalf("expected error from Exec")
	}
}

func TestPostgresStore_FindRecent(t *testing.T) {
	db := &fakePgDB{
		count: 7,
		rows: [][]any{
			{"id-2", "LOGOUT", "ana", "10.0.0.1", "", t0.Add(time.Minute)},
			{"id-1", "AUTHENTICATION_SUCCESS", "ana", "10.0.0.1", "authorities: ROLE_USER", t0},
		},
	}
	store := NewPostgresStore(db)

	page, err := store.FindRecent(context.Background(), domain.Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("FindRecent: %v", err)
	}
	if page.Total != 7 || len(page.Events) != 2 || page.Events[0].Type != domain.Logout {
		t.Fatalf("unexpected page: %+v", page)
	}
	if !strings.Contains(db.querySQL, "ORDER BY occurred_at DESC LIMIT $1 OFFSET $2") {
		t.Fatalf("unexpected sql: %s", db.querySQL)
	}
	if db.queryArgs[0] != 2 || db.queryArgs[1] != 2 {
		t.Fatalf("unexpected paging args: %v", db.queryArgs)
	}
}

func TestPostgresStore_Queries(t *testing.T) {
	db := &fakePgDB{count: 3}
	store := NewPostgresStore(db)
	ctx := context.Background()

	if _, err := store.FindByOrigin(ctx, "10.0.0.9"); err != nil {
		t.Fatalf("FindByOrigin: %v", err)
	}
	if !strings.Contains(db.querySQL, "WHERE ip_address=$1") || db.queryArgs[0] != "10.0.0.9" {
		t.Fatalf("unexpected query: %s %v", db.querySQL, db.queryArgs)
	}

	events, err := store.FindByType(ctx, domain.Logout)
	if err != nil {
		t.Fatalf("FindByType: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", events)
	}

	n, err := store.CountBySubjectAndTypeSince(ctx, "ana", domain.AuthenticationFailure, t0)
	if err != nil || n != 3 {
		t.Fatalf("expected 3, got %d %v", n, err)
	}
	if !strings.Contains(db.rowSQL, "occurred_at > $3") {
		t.Fatalf("count must use strict comparison: %s", db.rowSQL)
	}

	db.queryErr = errors.New("boom")
	if _, err := store.FindBySubject(ctx, "ana"); err == nil {
		t.Fatalf("expected query error")
	}
}

func TestPostgresStore_Migrate(t *testing.T) {
	db := &fakePgDB{}
	if err := NewPostgresStore(db).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if db.execSQL[0] != Schema {
		t.Fatalf("expected schema DDL")
	}
}
