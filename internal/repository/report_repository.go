package repository

import (
	"context"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// ReportRepository computes read-only aggregates.
type ReportRepository interface {
	TicketCountsByStatus(ctx context.Context) ([]domain.StatusCount, error)
	TicketCountsByTechnician(ctx context.Context) ([]domain.TechnicianLoad, error)
	// PartUsage sums out movements per part inside the optional window.
	PartUsage(ctx context.Context, from, to *time.Time) ([]domain.PartUsageTotal, error)
	CommonIssues(ctx context.Context, limit int) ([]domain.IssueCount, error)
}

type reportRepository struct {
	db DBTX
}

func (r *reportRepository) TicketCountsByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.StatusCount
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (r *reportRepository) TicketCountsByTechnician(ctx context.Context) ([]domain.TechnicianLoad, error) {
	const query = `
        SELECT u.id, u.username, u.full_name, COUNT(t.id)
        FROM tickets t JOIN users u ON u.id = t.assignee_id
        GROUP BY u.id, u.username, u.full_name
        ORDER BY COUNT(t.id) DESC, u.username`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.TechnicianLoad
	for rows.Next() {
		var load domain.TechnicianLoad
		if err := rows.Scan(&load.TechnicianID, &load.Username, &load.FullName, &load.TicketCount); err != nil {
			return nil, err
		}
		result = append(result, load)
	}
	return result, rows.Err()
}

func (r *reportRepository) PartUsage(ctx context.Context, from, to *time.Time) ([]domain.PartUsageTotal, error) {
	where := &whereBuilder{}
	where.add("m.type='out'")
	if from != nil {
		where.add("m.at >= %s", *from)
	}
	if to != nil {
		where.add("m.at <= %s", *to)
	}
	query := `
        SELECT m.part_id, p.name, SUM(m.quantity)
        FROM stock_movements m JOIN parts p ON p.id = m.part_id` + where.sql() + `
        GROUP BY m.part_id, p.name
        ORDER BY SUM(m.quantity) DESC, p.name`
	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.PartUsageTotal
	for rows.Next() {
		var usage domain.PartUsageTotal
		if err := rows.Scan(&usage.PartID, &usage.PartName, &usage.TotalQuantity); err != nil {
			return nil, err
		}
		result = append(result, usage)
	}
	return result, rows.Err()
}

func (r *reportRepository) CommonIssues(ctx context.Context, limit int) ([]domain.IssueCount, error) {
	const query = `
        SELECT LOWER(TRIM(initial_complaint)) AS complaint, COUNT(*)
        FROM tickets
        GROUP BY complaint
        ORDER BY COUNT(*) DESC, complaint
        LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.IssueCount
	for rows.Next() {
		var issue domain.IssueCount
		if err := rows.Scan(&issue.Complaint, &issue.Occurrences); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}
