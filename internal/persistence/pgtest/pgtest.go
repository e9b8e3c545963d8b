// Package pgtest opens a migrated, empty Postgres database for tests.
// Tests using it are skipped unless POSTGRES_TEST_DSN is set.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/persistence"
)

// DSNEnv names the variable holding the test database DSN.
const DSNEnv = "POSTGRES_TEST_DSN"

// lockKey serializes packages that share the test database.
const lockKey = 7311

const truncateAll = `
    TRUNCATE audit_logs, rma_records, knowledge_entries, stock_movements, parts,
             ticket_history, tickets, devices, customers, users, sequence_counters
    RESTART IDENTITY CASCADE`

// Pool returns a pool on a freshly truncated schema and closes it when t ends.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", DSNEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	lock, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire lock connection: %v", err)
	}
	if _, err := lock.Exec(ctx, `SELECT pg_advisory_lock($1)`, lockKey); err != nil {
		lock.Release()
		t.Fatalf("advisory lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = lock.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, lockKey)
		lock.Release()
	})

	if err := persistence.RunMigrations(ctx, pool, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, truncateAll); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
