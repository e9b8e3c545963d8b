package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/repair-service/internal/domain"
)

// StockMovementRepository is the append-only stock ledger.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *domain.StockMovement) error
	List(ctx context.Context, filter MovementFilter) ([]domain.StockMovement, int, error)
	// SumByPart returns the sum of signed deltas recorded for a part.
	SumByPart(ctx context.Context, partID string) (int, error)
}

type stockMovementRepository struct {
	db DBTX
}

func (r *stockMovementRepository) Create(ctx context.Context, movement *domain.StockMovement) error {
	const query = `
        INSERT INTO stock_movements (part_id, part_name_snapshot, type, quantity, reference, notes, actor_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, at`
	return mapPgError(r.db.QueryRow(ctx, query,
		movement.PartID,
		movement.PartNameSnapshot,
		movement.Type,
		movement.Quantity,
		movement.Reference,
		movement.Notes,
		movement.ActorID,
	).Scan(&movement.ID, &movement.At))
}

func (r *stockMovementRepository) List(ctx context.Context, filter MovementFilter) ([]domain.StockMovement, int, error) {
	where := &whereBuilder{}
	if filter.PartID != "" {
		where.add("part_id=%s", filter.PartID)
	}
	if filter.ActorID != "" {
		where.add("actor_id=%s", filter.ActorID)
	}
	if filter.Type != "" {
		where.add("type=%s", filter.Type)
	}
	if filter.Reference != "" {
		where.add("reference=%s", filter.Reference)
	}
	if filter.From != nil {
		where.add("at >= %s", *filter.From)
	}
	if filter.To != nil {
		where.add("at <= %s", *filter.To)
	}
	where.search(filter.SearchTerm, "reference", "notes", "part_name_snapshot")

	total, err := count(ctx, r.db, "stock_movements", where)
	if err != nil {
		return nil, 0, mapPgError(err)
	}

	query := fmt.Sprintf(`
        SELECT id, part_id, part_name_snapshot, type, quantity, reference, notes, actor_id, at
        FROM stock_movements%s ORDER BY seq DESC%s`, where.sql(), filter.Page.sql())
	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.StockMovement
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(
			&m.ID,
			&m.PartID,
			&m.PartNameSnapshot,
			&m.Type,
			&m.Quantity,
			&m.Reference,
			&m.Notes,
			&m.ActorID,
			&m.At,
		); err != nil {
			return nil, 0, mapPgError(err)
		}
		result = append(result, m)
	}
	return result, total, rows.Err()
}

func (r *stockMovementRepository) SumByPart(ctx context.Context, partID string) (int, error) {
	const query = `
        SELECT COALESCE(SUM(CASE WHEN type='out' THEN -quantity ELSE quantity END), 0)
        FROM stock_movements WHERE part_id=$1`
	var total int
	if err := r.db.QueryRow(ctx, query, partID).Scan(&total); err != nil {
		return 0, mapPgError(err)
	}
	return total, nil
}
