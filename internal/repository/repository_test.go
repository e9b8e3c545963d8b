package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapPgError(t *testing.T) {
	if !errors.Is(mapPgError(pgx.ErrNoRows), ErrNotFound) {
		t.Fatalf("no rows should map to ErrNotFound")
	}
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "tickets_code_key"}
	if !errors.Is(mapPgError(dup), ErrDuplicate) {
		t.Fatalf("unique violation should map to ErrDuplicate")
	}
	if !errors.Is(mapPgError(&pgconn.PgError{Code: "22P02"}), ErrNotFound) {
		t.Fatalf("malformed uuid should map to ErrNotFound")
	}
	other := errors.New("connection reset")
	if mapPgError(other) != other {
		t.Fatalf("unrelated errors must pass through")
	}
	if mapPgError(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestWhereBuilder(t *testing.T) {
	w := &whereBuilder{}
	w.add("status=%s", "open")
	w.add("created_at >= %s", "2026-01-01")
	w.search("  Fan ", "subject", "description")

	want := " WHERE status=$1 AND created_at >= $2 AND (LOWER(subject) LIKE $3 OR LOWER(description) LIKE $3)"
	if got := w.sql(); got != want {
		t.Fatalf("unexpected sql:\n got %q\nwant %q", got, want)
	}
	if len(w.args) != 3 || w.args[2] != "%fan%" {
		t.Fatalf("unexpected args %v", w.args)
	}
	if (&whereBuilder{}).sql() != "" {
		t.Fatalf("empty builder should render nothing")
	}
}

func TestPageSQL(t *testing.T) {
	if got := (Page{Limit: 20, Offset: 40}).sql(); got != " LIMIT 20 OFFSET 40" {
		t.Fatalf("unexpected page sql %q", got)
	}
	if got := (Page{}).sql(); got != "" {
		t.Fatalf("zero page should render nothing, got %q", got)
	}
}
