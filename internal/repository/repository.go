package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/repair-service/internal/domain"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrInsufficientStock is returned when a stock delta would drive a part below zero.
	ErrInsufficientStock = errors.New("repository: insufficient stock")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups every repository bound to one connection or transaction.
type Repositories struct {
	Tickets   TicketRepository
	History   TicketHistoryRepository
	Parts     PartRepository
	Movements StockMovementRepository
	Knowledge KnowledgeRepository
	Users     UserRepository
	Customers CustomerRepository
	Devices   DeviceRepository
	Sequences SequenceRepository
	RMAs      RmaRepository
	Audit     AuditLogRepository
	Reports   ReportRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repositories() Repositories
	// WithinTx runs fn in one transaction. Any error returned by fn rolls
	// every write back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Page bounds a list query. A non-positive Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssigneeID  *string
	CustomerID  *string
	SearchTerm  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page
}

// PartFilter narrows part listings.
type PartFilter struct {
	Category     domain.PartCategory
	Status       domain.PartStatus
	SearchTerm   string
	LowStockOnly bool
	Page
}

// MovementFilter narrows ledger queries.
type MovementFilter struct {
	PartID     string
	ActorID    string
	Type       domain.MovementType
	Reference  string
	From       *time.Time
	To         *time.Time
	SearchTerm string
	Page
}

// KnowledgeFilter narrows knowledge base listings.
type KnowledgeFilter struct {
	SearchTerm string
	Published  *bool
	Tag        string
	Page
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role       domain.Role
	Active     *bool
	SearchTerm string
	Page
}

// CustomerFilter narrows customer listings.
type CustomerFilter struct {
	SearchTerm string
	Page
}

// RmaFilter narrows RMA listings.
type RmaFilter struct {
	Status     domain.RmaStatus
	SearchTerm string
	Page
}

// AuditFilter narrows audit log listings.
type AuditFilter struct {
	ActorID      string
	Method       string
	Status       int
	ResourceType string
	ResourceID   string
	Page
}

// mapPgError folds driver errors into the package sentinels.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "22P02":
			// malformed uuid in a lookup
			return ErrNotFound
		}
	}
	return err
}

// whereBuilder accumulates positional SQL predicates.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(format string, values ...any) {
	placeholders := make([]any, len(values))
	for i, v := range values {
		w.args = append(w.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(format, placeholders...))
}

func (w *whereBuilder) search(term string, columns ...string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	w.args = append(w.args, "%"+strings.ToLower(term)+"%")
	placeholder := fmt.Sprintf("$%d", len(w.args))
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("LOWER(%s) LIKE %s", col, placeholder)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (p Page) sql() string {
	var b strings.Builder
	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)
	}
	if p.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", p.Offset)
	}
	return b.String()
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func count(ctx context.Context, db DBTX, table string, where *whereBuilder) (int, error) {
	var total int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+where.sql(), where.args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
