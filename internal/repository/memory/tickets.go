package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
)

type ticketRepository struct{ s *session }

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.s.read(func(st *state) error {
		for _, existing := range st.tickets {
			if existing.Code == ticket.Code {
				return repository.ErrDuplicate
			}
		}
		now := time.Now().UTC()
		ticket.ID = uuid.NewString()
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		st.tickets[ticket.ID] = cloneTicket(ticket)
		return nil
	})
}

func (r *ticketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.s.read(func(st *state) error {
		existing, ok := st.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		ticket.UpdatedAt = time.Now().UTC()
		stored := cloneTicket(ticket)
		stored.Code = existing.Code
		stored.InitialComplaint = existing.InitialComplaint
		stored.CustomerID = existing.CustomerID
		stored.CreatedBy = existing.CreatedBy
		stored.CreatedAt = existing.CreatedAt
		st.tickets[ticket.ID] = stored
		return nil
	})
}

func (r *ticketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var found *domain.Ticket
	err := r.s.read(func(st *state) error {
		t, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = cloneTicket(t)
		return nil
	})
	return found, err
}

// GetByIDForUpdate needs no extra locking: transactions already hold the store.
func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	var found *domain.Ticket
	err := r.s.read(func(st *state) error {
		for _, t := range st.tickets {
			if t.Code == code {
				found = cloneTicket(t)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *ticketRepository) MaxCode(_ context.Context, prefix string) (string, error) {
	var max string
	err := r.s.read(func(st *state) error {
		for _, t := range st.tickets {
			if strings.HasPrefix(t.Code, prefix) && codeGreater(t.Code, max) {
				max = t.Code
			}
		}
		return nil
	})
	return max, err
}

func (r *ticketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	var matched []domain.Ticket
	err := r.s.read(func(st *state) error {
		for _, t := range st.tickets {
			if !ticketMatches(t, filter) {
				continue
			}
			matched = append(matched, *cloneTicket(t))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return codeGreater(matched[i].Code, matched[j].Code)
	})
	return paginate(matched, filter.Page), len(matched), nil
}

func ticketMatches(t *domain.Ticket, filter repository.TicketFilter) bool {
	if len(filter.Statuses) > 0 && !containsValue(filter.Statuses, t.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsValue(filter.Priorities, t.Priority) {
		return false
	}
	if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
		return false
	}
	if filter.CustomerID != nil && t.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.CreatedFrom != nil && t.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && t.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return containsFold(filter.SearchTerm, t.Code, t.Subject, t.InitialComplaint, t.Description)
}

func containsValue[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// codeGreater orders codes by length first so wider suffixes sort last.
func codeGreater(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

type historyRepository struct{ s *session }

func (r *historyRepository) Create(_ context.Context, history *domain.TicketHistory) error {
	return r.s.read(func(st *state) error {
		history.ID = uuid.NewString()
		history.CreatedAt = time.Now().UTC()
		stored := *history
		stored.OldValue = cloneMap(history.OldValue)
		stored.NewValue = cloneMap(history.NewValue)
		st.history = append(st.history, stored)
		return nil
	})
}

func (r *historyRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var result []domain.TicketHistory
	err := r.s.read(func(st *state) error {
		for _, h := range st.history {
			if h.TicketID == ticketID {
				h.OldValue = cloneMap(h.OldValue)
				h.NewValue = cloneMap(h.NewValue)
				result = append(result, h)
			}
		}
		return nil
	})
	return result, err
}
