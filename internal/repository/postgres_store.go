package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Repositories() Repositories {
	return newRepositories(s.pool)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Tickets:   &ticketRepository{db: db},
		History:   &ticketHistoryRepository{db: db},
		Parts:     &partRepository{db: db},
		Movements: &stockMovementRepository{db: db},
		Knowledge: &knowledgeRepository{db: db},
		Users:     &userRepository{db: db},
		Customers: &customerRepository{db: db},
		Devices:   &deviceRepository{db: db},
		Sequences: &sequenceRepository{db: db},
		RMAs:      &rmaRepository{db: db},
		Audit:     &auditLogRepository{db: db},
		Reports:   &reportRepository{db: db},
	}
}
