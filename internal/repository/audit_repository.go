package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/repair-service/internal/domain"
)

// AuditLogRepository stores per-request audit records.
type AuditLogRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditLog, int, error)
}

type auditLogRepository struct {
	db DBTX
}

func (r *auditLogRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	const query = `
        INSERT INTO audit_logs (request_id, method, path, route_key, status, duration_ms, actor_id,
            ip, user_agent, resource_type, resource_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at`
	return mapPgError(r.db.QueryRow(ctx, query,
		log.RequestID,
		log.Method,
		log.Path,
		log.RouteKey,
		log.Status,
		log.DurationMs,
		log.ActorID,
		log.IP,
		log.UserAgent,
		log.ResourceType,
		log.ResourceID,
	).Scan(&log.ID, &log.CreatedAt))
}

func (r *auditLogRepository) List(ctx context.Context, filter AuditFilter) ([]domain.AuditLog, int, error) {
	where := &whereBuilder{}
	if filter.ActorID != "" {
		where.add("actor_id=%s", filter.ActorID)
	}
	if filter.Method != "" {
		where.add("method=%s", filter.Method)
	}
	if filter.Status != 0 {
		where.add("status=%s", filter.Status)
	}
	if filter.ResourceType != "" {
		where.add("resource_type=%s", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		where.add("resource_id=%s", filter.ResourceID)
	}

	total, err := count(ctx, r.db, "audit_logs", where)
	if err != nil {
		return nil, 0, mapPgError(err)
	}

	query := fmt.Sprintf(`
        SELECT id, request_id, method, path, route_key, status, duration_ms, actor_id, ip,
               user_agent, resource_type, resource_id, created_at
        FROM audit_logs%s ORDER BY created_at DESC, id%s`, where.sql(), filter.Page.sql())
	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(
			&l.ID,
			&l.RequestID,
			&l.Method,
			&l.Path,
			&l.RouteKey,
			&l.Status,
			&l.DurationMs,
			&l.ActorID,
			&l.IP,
			&l.UserAgent,
			&l.ResourceType,
			&l.ResourceID,
			&l.CreatedAt,
		); err != nil {
			return nil, 0, mapPgError(err)
		}
		result = append(result, l)
	}
	return result, total, rows.Err()
}
