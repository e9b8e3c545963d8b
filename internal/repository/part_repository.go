package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/repair-service/internal/domain"
)

// PartRepository persists inventory parts. Stock only moves through ApplyStockDelta.
type PartRepository interface {
	Create(ctx context.Context, part *domain.Part) error
	// Update writes catalogue fields and never touches stock.
	Update(ctx context.Context, part *domain.Part) error
	GetByID(ctx context.Context, id string) (*domain.Part, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Part, error)
	List(ctx context.Context, filter PartFilter) ([]domain.Part, int, error)
	// ApplyStockDelta adds delta to stock when the result stays >= 0 and
	// returns the updated part, or ErrInsufficientStock.
	ApplyStockDelta(ctx context.Context, id string, delta int) (*domain.Part, error)
}

type partRepository struct {
	db DBTX
}

const partColumns = `id, name, sku, category, vendor, unit, stock, min_stock, location, price::text,
       status, created_at, updated_at`

func (r *partRepository) Create(ctx context.Context, part *domain.Part) error {
	const query = `
        INSERT INTO parts (name, sku, category, vendor, unit, stock, min_stock, location, price, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::numeric,$10)
        RETURNING id, created_at, updated_at`
	return mapPgError(r.db.QueryRow(ctx, query,
		part.Name,
		part.SKU,
		part.Category,
		part.Vendor,
		part.Unit,
		part.Stock,
		part.MinStock,
		part.Location,
		part.Price.String(),
		part.Status,
	).Scan(&part.ID, &part.CreatedAt, &part.UpdatedAt))
}

func (r *partRepository) Update(ctx context.Context, part *domain.Part) error {
	const query = `
        UPDATE parts SET name=$1, sku=$2, category=$3, vendor=$4, unit=$5, min_stock=$6,
            location=$7, price=$8::numeric, status=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING stock, updated_at`
	return mapPgError(r.db.QueryRow(ctx, query,
		part.Name,
		part.SKU,
		part.Category,
		part.Vendor,
		part.Unit,
		part.MinStock,
		part.Location,
		part.Price.String(),
		part.Status,
		part.ID,
	).Scan(&part.Stock, &part.UpdatedAt))
}

func (r *partRepository) GetByID(ctx context.Context, id string) (*domain.Part, error) {
	return r.fetchSingle(ctx, `SELECT `+partColumns+` FROM parts WHERE id=$1`, id)
}

func (r *partRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Part, error) {
	return r.fetchSingle(ctx, `SELECT `+partColumns+` FROM parts WHERE id=$1 FOR UPDATE`, id)
}

func (r *partRepository) ApplyStockDelta(ctx context.Context, id string, delta int) (*domain.Part, error) {
	const query = `
        UPDATE parts SET stock = stock + $2, updated_at=NOW()
        WHERE id=$1 AND stock + $2 >= 0
        RETURNING ` + partColumns
	part, err := scanPart(r.db.QueryRow(ctx, query, id, delta))
	if err == nil {
		return part, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapPgError(err)
	}
	// no row updated: either the part is missing or the guard rejected the delta
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrInsufficientStock
}

func (r *partRepository) List(ctx context.Context, filter PartFilter) ([]domain.Part, int, error) {
	where := &whereBuilder{}
	if filter.Category != "" {
		where.add("category=%s", filter.Category)
	}
	if filter.Status != "" {
		where.add("status=%s", filter.Status)
	}
	if filter.LowStockOnly {
		where.add("min_stock > 0 AND stock < min_stock")
	}
	where.search(filter.SearchTerm, "name", "sku", "vendor")

	total, err := count(ctx, r.db, "parts", where)
	if err != nil {
		return nil, 0, mapPgError(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM parts%s ORDER BY name ASC, id ASC%s`,
		partColumns, where.sql(), filter.Page.sql())
	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.Part
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *part)
	}
	return result, total, rows.Err()
}

func (r *partRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Part, error) {
	part, err := scanPart(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return part, nil
}

func scanPart(row pgx.Row) (*domain.Part, error) {
	var (
		part  domain.Part
		price string
	)
	if err := row.Scan(
		&part.ID,
		&part.Name,
		&part.SKU,
		&part.Category,
		&part.Vendor,
		&part.Unit,
		&part.Stock,
		&part.MinStock,
		&part.Location,
		&price,
		&part.Status,
		&part.CreatedAt,
		&part.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}
	part.Price = parsed
	return &part, nil
}
