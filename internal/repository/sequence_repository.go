package repository

import "context"

// SequenceRepository hands out per-scope counters.
type SequenceRepository interface {
	// Next increments the counter for scope, first raising it to floor, and
	// returns the new value. The counter row stays locked until the
	// surrounding transaction ends, so concurrent callers serialize.
	Next(ctx context.Context, scope string, floor int64) (int64, error)
}

type sequenceRepository struct {
	db DBTX
}

func (r *sequenceRepository) Next(ctx context.Context, scope string, floor int64) (int64, error) {
	const query = `
        INSERT INTO sequence_counters (scope, value) VALUES ($1, $2 + 1)
        ON CONFLICT (scope) DO UPDATE
            SET value = GREATEST(sequence_counters.value, $2) + 1, updated_at = NOW()
        RETURNING value`
	var value int64
	if err := r.db.QueryRow(ctx, query, scope, floor).Scan(&value); err != nil {
		return 0, mapPgError(err)
	}
	return value, nil
}
