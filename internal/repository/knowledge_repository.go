package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repair-service/internal/domain"
)

// KnowledgeRepository persists knowledge base entries.
type KnowledgeRepository interface {
	// Create returns ErrDuplicate when an entry already references the source ticket.
	Create(ctx context.Context, entry *domain.KnowledgeEntry) error
	Update(ctx context.Context, entry *domain.KnowledgeEntry) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	GetBySourceTicket(ctx context.Context, ticketID string) (*domain.KnowledgeEntry, error)
	List(ctx context.Context, filter KnowledgeFilter) ([]domain.KnowledgeEntry, int, error)
}

type knowledgeRepository struct {
	db DBTX
}

const knowledgeColumns = `id, title, symptom, diagnosis, solution, source_ticket_id, related_part_ids,
       tags, is_published, created_by, created_at, updated_at`

func (r *knowledgeRepository) Create(ctx context.Context, entry *domain.KnowledgeEntry) error {
	const query = `
        INSERT INTO knowledge_entries (title, symptom, diagnosis, solution, source_ticket_id,
            related_part_ids, tags, is_published, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return mapPgError(r.db.QueryRow(ctx, query,
		entry.Title,
		entry.Symptom,
		entry.Diagnosis,
		entry.Solution,
		entry.SourceTicketID,
		nonNilStrings(entry.RelatedPartIDs),
		nonNilStrings(entry.Tags),
		entry.IsPublished,
		entry.CreatedBy,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt))
}

func (r *knowledgeRepository) Update(ctx context.Context, entry *domain.KnowledgeEntry) error {
	const query = `
        UPDATE knowledge_entries SET title=$1, symptom=$2, diagnosis=$3, solution=$4,
            related_part_ids=$5, tags=$6, is_published=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	return mapPgError(r.db.QueryRow(ctx, query,
		entry.Title,
		entry.Symptom,
		entry.Diagnosis,
		entry.Solution,
		nonNilStrings(entry.RelatedPartIDs),
		nonNilStrings(entry.Tags),
		entry.IsPublished,
		entry.ID,
	).Scan(&entry.UpdatedAt))
}

func (r *knowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	return r.fetchSingle(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_entries WHERE id=$1`, id)
}

func (r *knowledgeRepository) GetBySourceTicket(ctx context.Context, ticketID string) (*domain.KnowledgeEntry, error) {
	return r.fetchSingle(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_entries WHERE source_ticket_id=$1`, ticketID)
}

func (r *knowledgeRepository) List(ctx context.Context, filter KnowledgeFilter) ([]domain.KnowledgeEntry, int, error) {
	where := &whereBuilder{}
	if filter.Published != nil {
		where.add("is_published=%s", *filter.Published)
	}
	if filter.Tag != "" {
		where.add("%s = ANY(tags)", filter.Tag)
	}
	where.search(filter.SearchTerm, "title", "symptom", "diagnosis", "solution")

	total, err := count(ctx, r.db, "knowledge_entries", where)
	if err != nil {
		return nil, 0, mapPgError(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM knowledge_entries%s ORDER BY created_at DESC, id%s`,
		knowledgeColumns, where.sql(), filter.Page.sql())
	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledge(rows)
		if err != nil {
			return nil, 0, mapPgError(err)
		}
		result = append(result, *entry)
	}
	return result, total, rows.Err()
}

func (r *knowledgeRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.KnowledgeEntry, error) {
	entry, err := scanKnowledge(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return entry, nil
}

func scanKnowledge(row pgx.Row) (*domain.KnowledgeEntry, error) {
	var entry domain.KnowledgeEntry
	if err := row.Scan(
		&entry.ID,
		&entry.Title,
		&entry.Symptom,
		&entry.Diagnosis,
		&entry.Solution,
		&entry.SourceTicketID,
		&entry.RelatedPartIDs,
		&entry.Tags,
		&entry.IsPublished,
		&entry.CreatedBy,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}
