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

type knowledgeRepository struct{ s *session }

func (r *knowledgeRepository) Create(_ context.Context, entry *domain.KnowledgeEntry) error {
	return r.s.read(func(st *state) error {
		if entry.SourceTicketID != nil {
			for _, existing := range st.knowledge {
				if existing.SourceTicketID != nil && *existing.SourceTicketID == *entry.SourceTicketID {
					return repository.ErrDuplicate
				}
			}
		}
		now := time.Now().UTC()
		entry.ID = uuid.NewString()
		entry.CreatedAt = now
		entry.UpdatedAt = now
		st.knowledge[entry.ID] = cloneKnowledge(entry)
		return nil
	})
}

func (r *knowledgeRepository) Update(_ context.Context, entry *domain.KnowledgeEntry) error {
	return r.s.read(func(st *state) error {
		existing, ok := st.knowledge[entry.ID]
		if !ok {
			return repository.ErrNotFound
		}
		entry.UpdatedAt = time.Now().UTC()
		stored := cloneKnowledge(entry)
		stored.SourceTicketID = clonePtr(existing.SourceTicketID)
		stored.CreatedBy = existing.CreatedBy
		stored.CreatedAt = existing.CreatedAt
		st.knowledge[entry.ID] = stored
		return nil
	})
}

func (r *knowledgeRepository) GetByID(_ context.Context, id string) (*domain.KnowledgeEntry, error) {
	var found *domain.KnowledgeEntry
	err := r.s.read(func(st *state) error {
		k, ok := st.knowledge[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = cloneKnowledge(k)
		return nil
	})
	return found, err
}

func (r *knowledgeRepository) GetBySourceTicket(_ context.Context, ticketID string) (*domain.KnowledgeEntry, error) {
	var found *domain.KnowledgeEntry
	err := r.s.read(func(st *state) error {
		for _, k := range st.knowledge {
			if k.SourceTicketID != nil && *k.SourceTicketID == ticketID {
				found = cloneKnowledge(k)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *knowledgeRepository) List(_ context.Context, filter repository.KnowledgeFilter) ([]domain.KnowledgeEntry, int, error) {
	var matched []domain.KnowledgeEntry
	err := r.s.read(func(st *state) error {
		for _, k := range st.knowledge {
			if filter.Published != nil && k.IsPublished != *filter.Published {
				continue
			}
			if filter.Tag != "" && !containsValue(k.Tags, filter.Tag) {
				continue
			}
			if !containsFold(filter.SearchTerm, k.Title, k.Symptom, k.Diagnosis, k.Solution) {
				continue
			}
			matched = append(matched, *cloneKnowledge(k))
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
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, filter.Page), len(matched), nil
}

type userRepository struct{ s *session }

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	return r.s.read(func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == user.Username {
				return repository.ErrDuplicate
			}
		}
		now := time.Now().UTC()
		user.ID = uuid.NewString()
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	return r.s.read(func(st *state) error {
		existing, ok := st.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		user.UpdatedAt = time.Now().UTC()
		stored := cloneUser(user)
		stored.Username = existing.Username
		stored.CreatedAt = existing.CreatedAt
		st.users[user.ID] = stored
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var found *domain.User
	err := r.s.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = cloneUser(u)
		return nil
	})
	return found, err
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	var found *domain.User
	err := r.s.read(func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				found = cloneUser(u)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *userRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	var matched []domain.User
	err := r.s.read(func(st *state) error {
		for _, u := range st.users {
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			if filter.Active != nil && u.Active != *filter.Active {
				continue
			}
			if !containsFold(filter.SearchTerm, u.Username, u.FullName) {
				continue
			}
			matched = append(matched, *u)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })
	return paginate(matched, filter.Page), len(matched), nil
}

type customerRepository struct{ s *session }

func (r *customerRepository) Create(_ context.Context, customer *domain.Customer) error {
	return r.s.read(func(st *state) error {
		for _, existing := range st.customers {
			if existing.Phone == customer.Phone {
				return repository.ErrDuplicate
			}
		}
		now := time.Now().UTC()
		customer.ID = uuid.NewString()
		customer.CreatedAt = now
		customer.UpdatedAt = now
		stored := *customer
		st.customers[customer.ID] = &stored
		return nil
	})
}

func (r *customerRepository) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	var found *domain.Customer
	err := r.s.read(func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = clonePtr(c)
		return nil
	})
	return found, err
}

func (r *customerRepository) GetByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	var found *domain.Customer
	err := r.s.read(func(st *state) error {
		for _, c := range st.customers {
			if c.Phone == phone {
				found = clonePtr(c)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *customerRepository) List(_ context.Context, filter repository.CustomerFilter) ([]domain.Customer, int, error) {
	var matched []domain.Customer
	err := r.s.read(func(st *state) error {
		for _, c := range st.customers {
			if containsFold(filter.SearchTerm, c.Name, c.Phone) {
				matched = append(matched, *c)
			}
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

type deviceRepository struct{ s *session }

func (r *deviceRepository) Create(_ context.Context, device *domain.Device) error {
	return r.s.read(func(st *state) error {
		if _, ok := st.customers[device.CustomerID]; !ok {
			return repository.ErrNotFound
		}
		for _, existing := range st.devices {
			if existing.SerialNumber == device.SerialNumber && existing.Model == device.Model {
				return repository.ErrDuplicate
			}
		}
		now := time.Now().UTC()
		device.ID = uuid.NewString()
		device.CreatedAt = now
		device.UpdatedAt = now
		stored := *device
		st.devices[device.ID] = &stored
		return nil
	})
}

func (r *deviceRepository) GetByID(_ context.Context, id string) (*domain.Device, error) {
	var found *domain.Device
	err := r.s.read(func(st *state) error {
		d, ok := st.devices[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = clonePtr(d)
		return nil
	})
	return found, err
}

func (r *deviceRepository) FindBySerialModel(_ context.Context, serial, model string) (*domain.Device, error) {
	var found *domain.Device
	err := r.s.read(func(st *state) error {
		for _, d := range st.devices {
			if d.SerialNumber == serial && d.Model == model {
				found = clonePtr(d)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *deviceRepository) ListByCustomer(_ context.Context, customerID string) ([]domain.Device, error) {
	var result []domain.Device
	err := r.s.read(func(st *state) error {
		for _, d := range st.devices {
			if d.CustomerID == customerID {
				result = append(result, *d)
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, err
}

type rmaRepository struct{ s *session }

func (r *rmaRepository) Create(_ context.Context, rma *domain.RmaRecord) error {
	return r.s.read(func(st *state) error {
		for _, existing := range st.rmas {
			if existing.Code == rma.Code {
				return repository.ErrDuplicate
			}
		}
		now := time.Now().UTC()
		rma.ID = uuid.NewString()
		rma.CreatedAt = now
		rma.UpdatedAt = now
		st.rmas[rma.ID] = cloneRma(rma)
		return nil
	})
}

func (r *rmaRepository) Update(_ context.Context, rma *domain.RmaRecord) error {
	return r.s.read(func(st *state) error {
		existing, ok := st.rmas[rma.ID]
		if !ok {
			return repository.ErrNotFound
		}
		existing.Title = rma.Title
		existing.Status = rma.Status
		existing.Actions = append([]domain.RmaAction(nil), rma.Actions...)
		existing.UpdatedAt = time.Now().UTC()
		rma.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *rmaRepository) GetByID(_ context.Context, id string) (*domain.RmaRecord, error) {
	var found *domain.RmaRecord
	err := r.s.read(func(st *state) error {
		rma, ok := st.rmas[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = cloneRma(rma)
		return nil
	})
	return found, err
}

func (r *rmaRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.RmaRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *rmaRepository) MaxCode(_ context.Context, prefix string) (string, error) {
	var max string
	err := r.s.read(func(st *state) error {
		for _, rma := range st.rmas {
			if strings.HasPrefix(rma.Code, prefix) && codeGreater(rma.Code, max) {
				max = rma.Code
			}
		}
		return nil
	})
	return max, err
}

func (r *rmaRepository) List(_ context.Context, filter repository.RmaFilter) ([]domain.RmaRecord, int, error) {
	var matched []domain.RmaRecord
	err := r.s.read(func(st *state) error {
		for _, rma := range st.rmas {
			if filter.Status != "" && rma.Status != filter.Status {
				continue
			}
			if !containsFold(filter.SearchTerm, rma.Code, rma.Title, rma.CustomerName, rma.ProductName, rma.Serial) {
				continue
			}
			matched = append(matched, *cloneRma(rma))
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

type auditRepository struct{ s *session }

func (r *auditRepository) Create(_ context.Context, log *domain.AuditLog) error {
	return r.s.read(func(st *state) error {
		log.ID = uuid.NewString()
		log.CreatedAt = time.Now().UTC()
		stored := *log
		stored.ActorID = clonePtr(log.ActorID)
		st.audit = append(st.audit, stored)
		return nil
	})
}

func (r *auditRepository) List(_ context.Context, filter repository.AuditFilter) ([]domain.AuditLog, int, error) {
	var matched []domain.AuditLog
	err := r.s.read(func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			l := st.audit[i]
			if filter.ActorID != "" && (l.ActorID == nil || *l.ActorID != filter.ActorID) {
				continue
			}
			if filter.Method != "" && l.Method != filter.Method {
				continue
			}
			if filter.Status != 0 && l.Status != filter.Status {
				continue
			}
			if filter.ResourceType != "" && l.ResourceType != filter.ResourceType {
				continue
			}
			if filter.ResourceID != "" && l.ResourceID != filter.ResourceID {
				continue
			}
			l.ActorID = clonePtr(l.ActorID)
			matched = append(matched, l)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return paginate(matched, filter.Page), len(matched), nil
}
