package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination is the caller-facing page request.
type Pagination struct {
	Limit  int
	Offset int
}

func (p Pagination) page() repository.Page {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}

func pageAll(limit int) repository.Page {
	return repository.Page{Limit: limit}
}

// PageResult is one page of a listing plus the unpaged total.
type PageResult[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

func newPageResult[T any](items []T, total int, page repository.Page) PageResult[T] {
	return PageResult[T]{Items: nonNil(items), Total: total, Limit: page.Limit, Offset: page.Offset}
}

// mapRepoError translates repository sentinels into domain errors.
func mapRepoError(err error, resource string, details map[string]any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", details)
	default:
		return apperrors.MapError(err)
	}
}

// publisher dispatches events after commit. Handler failures never fail the
// operation that produced the event.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, evs ...events.Event) {
	if p.dispatcher == nil {
		return
	}
	for _, event := range evs {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		if err := p.dispatcher.Publish(ctx, event); err != nil && p.logger != nil {
			p.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("aggregate_id", event.AggregateID),
				zap.Error(err))
		}
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]bool{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func nopLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
