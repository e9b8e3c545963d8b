package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

const commonIssueLimit = 20

// ReportCache holds serialized aggregates between requests.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ReportService computes read-only dashboards.
type ReportService struct {
	store  repository.Store
	cache  ReportCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewReportService constructs the service. A nil cache or zero ttl disables caching.
func NewReportService(store repository.Store, cache ReportCache, ttl time.Duration, logger *zap.Logger) *ReportService {
	return &ReportService{store: store, cache: cache, ttl: ttl, logger: nopLogger(logger)}
}

// TicketSummary counts tickets overall, per status and per technician.
type TicketSummary struct {
	Total        int                     `json:"total"`
	ByStatus     []domain.StatusCount    `json:"by_status"`
	ByTechnician []domain.TechnicianLoad `json:"by_technician"`
}

// TicketSummary returns ticket counts.
func (s *ReportService) TicketSummary(ctx context.Context) (*TicketSummary, error) {
	var summary TicketSummary
	err := s.cached(ctx, "tickets:summary", &summary, func() (any, error) {
		repos := s.store.Repositories()
		byStatus, err := repos.Reports.TicketCountsByStatus(ctx)
		if err != nil {
			return nil, err
		}
		byTech, err := repos.Reports.TicketCountsByTechnician(ctx)
		if err != nil {
			return nil, err
		}
		out := TicketSummary{ByStatus: nonNil(byStatus), ByTechnician: nonNil(byTech)}
		for _, sc := range byStatus {
			out.Total += sc.Count
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// PartUsage sums consumed quantities per part inside the optional window.
func (s *ReportService) PartUsage(ctx context.Context, from, to *time.Time) ([]domain.PartUsageTotal, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"to": "must not be before from"})
	}
	key := fmt.Sprintf("parts:usage:%s:%s", timeKey(from), timeKey(to))
	var usage []domain.PartUsageTotal
	err := s.cached(ctx, key, &usage, func() (any, error) {
		rows, err := s.store.Repositories().Reports.PartUsage(ctx, from, to)
		return nonNil(rows), err
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// CommonIssues lists the most frequent complaints.
func (s *ReportService) CommonIssues(ctx context.Context) ([]domain.IssueCount, error) {
	var issues []domain.IssueCount
	err := s.cached(ctx, "tickets:issues", &issues, func() (any, error) {
		rows, err := s.store.Repositories().Reports.CommonIssues(ctx, commonIssueLimit)
		return nonNil(rows), err
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// cached decodes key into dst, computing and storing it on a miss. Cache
// failures only cost a recomputation.
func (s *ReportService) cached(ctx context.Context, key string, dst any, compute func() (any, error)) error {
	if s.cache != nil && s.ttl > 0 {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Debug("report cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok && json.Unmarshal(raw, dst) == nil {
			return nil
		}
	}

	value, err := compute()
	if err != nil {
		return apperrors.MapError(err)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.NewInternalError(err)
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.logger.Debug("report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func timeKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
