package service

import (
	"context"
	"strings"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// AuditService stores and queries per-request audit records.
type AuditService struct {
	store repository.Store
}

// NewAuditService constructs the service.
func NewAuditService(store repository.Store) *AuditService {
	return &AuditService{store: store}
}

// AuditListFilter narrows audit listings.
type AuditListFilter struct {
	ActorID      string
	Method       string
	Status       int
	ResourceType string
	ResourceID   string
}

// Record persists one audit entry.
func (s *AuditService) Record(ctx context.Context, entry *domain.AuditLog) error {
	return apperrors.MapError(s.store.Repositories().Audit.Create(ctx, entry))
}

// List returns a page of audit entries, newest first.
func (s *AuditService) List(ctx context.Context, filter AuditListFilter, pagination Pagination) (PageResult[domain.AuditLog], error) {
	page := pagination.page()
	entries, total, err := s.store.Repositories().Audit.List(ctx, repository.AuditFilter{
		ActorID:      strings.TrimSpace(filter.ActorID),
		Method:       strings.ToUpper(strings.TrimSpace(filter.Method)),
		Status:       filter.Status,
		ResourceType: strings.TrimSpace(filter.ResourceType),
		ResourceID:   strings.TrimSpace(filter.ResourceID),
		Page:         page,
	})
	if err != nil {
		return PageResult[domain.AuditLog]{}, apperrors.MapError(err)
	}
	return newPageResult(entries, total, page), nil
}
