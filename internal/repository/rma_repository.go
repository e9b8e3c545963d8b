package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repair-service/internal/domain"
)

// RmaRepository persists return-merchandise records.
type RmaRepository interface {
	Create(ctx context.Context, rma *domain.RmaRecord) error
	Update(ctx context.Context, rma *domain.RmaRecord) error
	GetByID(ctx context.Context, id string) (*domain.RmaRecord, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.RmaRecord, error)
	MaxCode(ctx context.Context, prefix string) (string, error)
	List(ctx context.Context, filter RmaFilter) ([]domain.RmaRecord, int, error)
}

type rmaRepository struct {
	db DBTX
}

const rmaColumns = `id, code, title, customer_name, product_name, product_sku, serial, ticket_id,
       status, actions, created_by, created_at, updated_at`

func (r *rmaRepository) Create(ctx context.Context, rma *domain.RmaRecord) error {
	actions, err := encodeRmaActions(rma.Actions)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO rma_records (code, title, customer_name, product_name, product_sku, serial,
            ticket_id, status, actions, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return mapPgError(r.db.QueryRow(ctx, query,
		rma.Code,
		rma.Title,
		rma.CustomerName,
		rma.ProductName,
		rma.ProductSKU,
		rma.Serial,
		rma.TicketID,
		rma.Status,
		actions,
		rma.CreatedBy,
	).Scan(&rma.ID, &rma.CreatedAt, &rma.UpdatedAt))
}

func (r *rmaRepository) Update(ctx context.Context, rma *domain.RmaRecord) error {
	actions, err := encodeRmaActions(rma.Actions)
	if err != nil {
		return err
	}
	const query = `
        UPDATE rma_records SET title=$1, status=$2, actions=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return mapPgError(r.db.QueryRow(ctx, query, rma.Title, rma.Status, actions, rma.ID).Scan(&rma.UpdatedAt))
}

func (r *rmaRepository) GetByID(ctx context.Context, id string) (*domain.RmaRecord, error) {
	return r.fetchSingle(ctx, `SELECT `+rmaColumns+` FROM rma_records WHERE id=$1`, id)
}

func (r *rmaRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.RmaRecord, error) {
	return r.fetchSingle(ctx, `SELECT `+rmaColumns+` FROM rma_records WHERE id=$1 FOR UPDATE`, id)
}

func (r *rmaRepository) MaxCode(ctx context.Context, prefix string) (string, error) {
	const query = `
        SELECT code FROM rma_records WHERE code LIKE $1 || '%'
        ORDER BY LENGTH(code) DESC, code DESC LIMIT 1`
	var code string
	if err := mapPgError(r.db.QueryRow(ctx, query, prefix).Scan(&code)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return code, nil
}

func (r *rmaRepository) List(ctx context.Context, filter RmaFilter) ([]domain.RmaRecord, int, error) {
	where := &whereBuilder{}
	if filter.Status != "" {
		where.add("status=%s", filter.Status)
	}
	where.search(filter.SearchTerm, "code", "title", "customer_name", "product_name", "serial")

	total, err := count(ctx, r.db, "rma_records", where)
	if err != nil {
		return nil, 0, mapPgError(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM rma_records%s ORDER BY created_at DESC, code DESC%s`,
		rmaColumns, where.sql(), filter.Page.sql())
	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.RmaRecord
	for rows.Next() {
		rma, err := scanRma(rows)
		if err != nil {
			return nil, 0, mapPgError(err)
		}
		result = append(result, *rma)
	}
	return result, total, rows.Err()
}

func (r *rmaRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.RmaRecord, error) {
	rma, err := scanRma(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return rma, nil
}

func scanRma(row pgx.Row) (*domain.RmaRecord, error) {
	var (
		rma     domain.RmaRecord
		actions []byte
	)
	if err := row.Scan(
		&rma.ID,
		&rma.Code,
		&rma.Title,
		&rma.CustomerName,
		&rma.ProductName,
		&rma.ProductSKU,
		&rma.Serial,
		&rma.TicketID,
		&rma.Status,
		&actions,
		&rma.CreatedBy,
		&rma.CreatedAt,
		&rma.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(actions, &rma.Actions); err != nil {
		return nil, fmt.Errorf("decode rma actions: %w", err)
	}
	return &rma, nil
}

func encodeRmaActions(actions []domain.RmaAction) ([]byte, error) {
	if actions == nil {
		actions = []domain.RmaAction{}
	}
	return json.Marshal(actions)
}
