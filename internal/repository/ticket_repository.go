package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repair-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate loads the ticket and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	// MaxCode returns the greatest code starting with prefix, or "".
	MaxCode(ctx context.Context, prefix string) (string, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
}

type ticketRepository struct {
	db DBTX
}

const ticketColumns = `id, code, subject, initial_complaint, description, customer_id, device_id,
       created_by, assignee_id, priority, status, tags, diagnostics, actions, resolution,
       created_at, updated_at, completed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	diagnostics, actions, resolution, err := encodeTicketDetails(ticket)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (code, subject, initial_complaint, description, customer_id, device_id,
            created_by, assignee_id, priority, status, tags, diagnostics, actions, resolution)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	err = r.db.QueryRow(ctx, query,
		ticket.Code,
		ticket.Subject,
		ticket.InitialComplaint,
		ticket.Description,
		ticket.CustomerID,
		ticket.DeviceID,
		ticket.CreatedBy,
		ticket.AssigneeID,
		ticket.Priority,
		ticket.Status,
		nonNilStrings(ticket.Tags),
		diagnostics,
		actions,
		resolution,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return mapPgError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	diagnostics, actions, resolution, err := encodeTicketDetails(ticket)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET subject=$1, description=$2, device_id=$3, assignee_id=$4, priority=$5,
            status=$6, tags=$7, diagnostics=$8, actions=$9, resolution=$10, completed_at=$11,
            updated_at=NOW()
        WHERE id=$12
        RETURNING updated_at`
	err = r.db.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.DeviceID,
		ticket.AssigneeID,
		ticket.Priority,
		ticket.Status,
		nonNilStrings(ticket.Tags),
		diagnostics,
		actions,
		resolution,
		ticket.CompletedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return mapPgError(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id)
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code=$1`, code)
}

func (r *ticketRepository) MaxCode(ctx context.Context, prefix string) (string, error) {
	const query = `
        SELECT code FROM tickets WHERE code LIKE $1 || '%'
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

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	where := &whereBuilder{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where.add("status = ANY(%s)", statuses)
	}
	if len(filter.Priorities) > 0 {
		priorities := make([]string, len(filter.Priorities))
		for i, p := range filter.Priorities {
			priorities[i] = string(p)
		}
		where.add("priority = ANY(%s)", priorities)
	}
	if filter.AssigneeID != nil {
		where.add("assignee_id=%s", *filter.AssigneeID)
	}
	if filter.CustomerID != nil {
		where.add("customer_id=%s", *filter.CustomerID)
	}
	if filter.CreatedFrom != nil {
		where.add("created_at >= %s", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		where.add("created_at <= %s", *filter.CreatedTo)
	}
	where.search(filter.SearchTerm, "code", "subject", "initial_complaint", "description")

	total, err := count(ctx, r.db, "tickets", where)
	if err != nil {
		return nil, 0, mapPgError(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets%s ORDER BY created_at DESC, code DESC%s`,
		ticketColumns, where.sql(), filter.Page.sql())
	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                           domain.Ticket
		diagnostics, actions, resolution []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.Subject,
		&ticket.InitialComplaint,
		&ticket.Description,
		&ticket.CustomerID,
		&ticket.DeviceID,
		&ticket.CreatedBy,
		&ticket.AssigneeID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Tags,
		&diagnostics,
		&actions,
		&resolution,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CompletedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(diagnostics, &ticket.Diagnostics); err != nil {
		return nil, fmt.Errorf("decode diagnostics: %w", err)
	}
	if err := json.Unmarshal(actions, &ticket.Actions); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}
	if len(resolution) > 0 {
		ticket.Resolution = &domain.Resolution{}
		if err := json.Unmarshal(resolution, ticket.Resolution); err != nil {
			return nil, fmt.Errorf("decode resolution: %w", err)
		}
	}
	return &ticket, nil
}

// encodeTicketDetails serializes the nested arrays as JSONB, keeping order.
func encodeTicketDetails(ticket *domain.Ticket) (diagnostics, actions []byte, resolution any, err error) {
	diags := ticket.Diagnostics
	if diags == nil {
		diags = []domain.Diagnostic{}
	}
	if diagnostics, err = json.Marshal(diags); err != nil {
		return nil, nil, nil, err
	}
	acts := ticket.Actions
	if acts == nil {
		acts = []domain.RepairAction{}
	}
	if actions, err = json.Marshal(acts); err != nil {
		return nil, nil, nil, err
	}
	if ticket.Resolution != nil {
		encoded, err := json.Marshal(ticket.Resolution)
		if err != nil {
			return nil, nil, nil, err
		}
		resolution = encoded
	}
	return diagnostics, actions, resolution, nil
}
