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

type partRepository struct{ s *session }

func (r *partRepository) Create(_ context.Context, part *domain.Part) error {
	return r.s.read(func(st *state) error {
		now := time.Now().UTC()
		part.ID = uuid.NewString()
		part.CreatedAt = now
		part.UpdatedAt = now
		stored := *part
		st.parts[part.ID] = &stored
		return nil
	})
}

func (r *partRepository) Update(_ context.Context, part *domain.Part) error {
	return r.s.read(func(st *state) error {
		existing, ok := st.parts[part.ID]
		if !ok {
			return repository.ErrNotFound
		}
		part.Stock = existing.Stock
		part.CreatedAt = existing.CreatedAt
		part.UpdatedAt = time.Now().UTC()
		stored := *part
		st.parts[part.ID] = &stored
		return nil
	})
}

func (r *partRepository) GetByID(_ context.Context, id string) (*domain.Part, error) {
	var found *domain.Part
	err := r.s.read(func(st *state) error {
		p, ok := st.parts[id]
		if !ok {
			return repository.ErrNotFound
		}
		copied := *p
		found = &copied
		return nil
	})
	return found, err
}

func (r *partRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Part, error) {
	return r.GetByID(ctx, id)
}

func (r *partRepository) ApplyStockDelta(_ context.Context, id string, delta int) (*domain.Part, error) {
	var updated *domain.Part
	err := r.s.read(func(st *state) error {
		p, ok := st.parts[id]
		if !ok {
			return repository.ErrNotFound
		}
		if p.Stock+delta < 0 {
			return repository.ErrInsufficientStock
		}
		p.Stock += delta
		p.UpdatedAt = time.Now().UTC()
		copied := *p
		updated = &copied
		return nil
	})
	return updated, err
}

func (r *partRepository) List(_ context.Context, filter repository.PartFilter) ([]domain.Part, int, error) {
	var matched []domain.Part
	err := r.s.read(func(st *state) error {
		for _, p := range st.parts {
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			if filter.LowStockOnly && !p.BelowMinimum() {
				continue
			}
			if !containsFold(filter.SearchTerm, p.Name, p.SKU, p.Vendor) {
				continue
			}
			matched = append(matched, *p)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, filter.Page), len(matched), nil
}

type movementRepository struct{ s *session }

func (r *movementRepository) Create(_ context.Context, movement *domain.StockMovement) error {
	return r.s.read(func(st *state) error {
		if _, ok := st.parts[movement.PartID]; !ok {
			return repository.ErrNotFound
		}
		movement.ID = uuid.NewString()
		movement.At = time.Now().UTC()
		st.movements = append(st.movements, *movement)
		return nil
	})
}

func (r *movementRepository) List(_ context.Context, filter repository.MovementFilter) ([]domain.StockMovement, int, error) {
	var matched []domain.StockMovement
	err := r.s.read(func(st *state) error {
		// newest first
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if filter.PartID != "" && m.PartID != filter.PartID {
				continue
			}
			if filter.ActorID != "" && m.ActorID != filter.ActorID {
				continue
			}
			if filter.Type != "" && m.Type != filter.Type {
				continue
			}
			if filter.Reference != "" && m.Reference != filter.Reference {
				continue
			}
			if filter.From != nil && m.At.Before(*filter.From) {
				continue
			}
			if filter.To != nil && m.At.After(*filter.To) {
				continue
			}
			if !containsFold(filter.SearchTerm, m.Reference, m.Notes, m.PartNameSnapshot) {
				continue
			}
			matched = append(matched, m)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return paginate(matched, filter.Page), len(matched), nil
}

func (r *movementRepository) SumByPart(_ context.Context, partID string) (int, error) {
	total := 0
	err := r.s.read(func(st *state) error {
		for i := range st.movements {
			if st.movements[i].PartID == partID {
				total += st.movements[i].SignedDelta()
			}
		}
		return nil
	})
	return total, err
}

type sequenceRepository struct{ s *session }

func (r *sequenceRepository) Next(_ context.Context, scope string, floor int64) (int64, error) {
	var value int64
	err := r.s.read(func(st *state) error {
		current := st.sequences[scope]
		if floor > current {
			current = floor
		}
		value = current + 1
		st.sequences[scope] = value
		return nil
	})
	return value, err
}

type reportRepository struct{ s *session }

func (r *reportRepository) TicketCountsByStatus(_ context.Context) ([]domain.StatusCount, error) {
	counts := map[domain.TicketStatus]int{}
	err := r.s.read(func(st *state) error {
		for _, t := range st.tickets {
			counts[t.Status]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	var result []domain.StatusCount
	for status, n := range counts {
		result = append(result, domain.StatusCount{Status: status, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Status < result[j].Status })
	return result, nil
}

func (r *reportRepository) TicketCountsByTechnician(_ context.Context) ([]domain.TechnicianLoad, error) {
	var result []domain.TechnicianLoad
	err := r.s.read(func(st *state) error {
		counts := map[string]int{}
		for _, t := range st.tickets {
			if t.AssigneeID != nil {
				counts[*t.AssigneeID]++
			}
		}
		for id, n := range counts {
			u, ok := st.users[id]
			if !ok {
				continue
			}
			result = append(result, domain.TechnicianLoad{
				TechnicianID: id,
				Username:     u.Username,
				FullName:     u.FullName,
				TicketCount:  n,
			})
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].TicketCount != result[j].TicketCount {
			return result[i].TicketCount > result[j].TicketCount
		}
		return result[i].Username < result[j].Username
	})
	return result, err
}

func (r *reportRepository) PartUsage(_ context.Context, from, to *time.Time) ([]domain.PartUsageTotal, error) {
	var result []domain.PartUsageTotal
	err := r.s.read(func(st *state) error {
		totals := map[string]int{}
		for _, m := range st.movements {
			if m.Type != domain.MovementOut {
				continue
			}
			if from != nil && m.At.Before(*from) {
				continue
			}
			if to != nil && m.At.After(*to) {
				continue
			}
			totals[m.PartID] += m.Quantity
		}
		for id, qty := range totals {
			name := ""
			if p, ok := st.parts[id]; ok {
				name = p.Name
			}
			result = append(result, domain.PartUsageTotal{PartID: id, PartName: name, TotalQuantity: qty})
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalQuantity != result[j].TotalQuantity {
			return result[i].TotalQuantity > result[j].TotalQuantity
		}
		return result[i].PartName < result[j].PartName
	})
	return result, err
}

func (r *reportRepository) CommonIssues(_ context.Context, limit int) ([]domain.IssueCount, error) {
	var result []domain.IssueCount
	err := r.s.read(func(st *state) error {
		counts := map[string]int{}
		for _, t := range st.tickets {
			counts[strings.ToLower(strings.TrimSpace(t.InitialComplaint))]++
		}
		for complaint, n := range counts {
			result = append(result, domain.IssueCount{Complaint: complaint, Occurrences: n})
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].Occurrences != result[j].Occurrences {
			return result[i].Occurrences > result[j].Occurrences
		}
		return result[i].Complaint < result[j].Complaint
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, err
}
