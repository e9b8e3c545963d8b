// Package memory is an in-process repository.Store. It backs the service when
// no Postgres DSN is configured and drives the service tests.
package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
)

type state struct {
	users     map[string]*domain.User
	customers map[string]*domain.Customer
	devices   map[string]*domain.Device
	tickets   map[string]*domain.Ticket
	history   []domain.TicketHistory
	parts     map[string]*domain.Part
	movements []domain.StockMovement
	knowledge map[string]*domain.KnowledgeEntry
	rmas      map[string]*domain.RmaRecord
	sequences map[string]int64
	audit     []domain.AuditLog
}

func newState() *state {
	return &state{
		users:     map[string]*domain.User{},
		customers: map[string]*domain.Customer{},
		devices:   map[string]*domain.Device{},
		tickets:   map[string]*domain.Ticket{},
		parts:     map[string]*domain.Part{},
		knowledge: map[string]*domain.KnowledgeEntry{},
		rmas:      map[string]*domain.RmaRecord{},
		sequences: map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, u := range s.users {
		c.users[id] = cloneUser(u)
	}
	for id, cu := range s.customers {
		copied := *cu
		c.customers[id] = &copied
	}
	for id, d := range s.devices {
		copied := *d
		c.devices[id] = &copied
	}
	for id, t := range s.tickets {
		c.tickets[id] = cloneTicket(t)
	}
	c.history = make([]domain.TicketHistory, len(s.history))
	copy(c.history, s.history)
	for id, p := range s.parts {
		copied := *p
		c.parts[id] = &copied
	}
	c.movements = make([]domain.StockMovement, len(s.movements))
	copy(c.movements, s.movements)
	for id, k := range s.knowledge {
		c.knowledge[id] = cloneKnowledge(k)
	}
	for id, r := range s.rmas {
		c.rmas[id] = cloneRma(r)
	}
	for scope, v := range s.sequences {
		c.sequences[scope] = v
	}
	c.audit = make([]domain.AuditLog, len(s.audit))
	copy(c.audit, s.audit)
	return c
}

// Store keeps all data behind one mutex. WithinTx holds the mutex for the
// whole unit of work and works on a copy, so transactions are serializable
// and a failed unit leaves no trace.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// Repositories returns repositories that lock the store per call.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(&session{store: s})
}

// WithinTx runs fn against a private copy of the data and publishes the copy
// only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.state.clone()
	if err := fn(ctx, newRepositories(&session{store: s, tx: working})); err != nil {
		return err
	}
	s.state = working
	return nil
}

// session routes repository calls either to a transaction copy or to the
// shared state under the store mutex.
type session struct {
	store *Store
	tx    *state
}

func (s *session) read(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return fn(s.store.state)
}

func newRepositories(s *session) repository.Repositories {
	return repository.Repositories{
		Tickets:   &ticketRepository{s},
		History:   &historyRepository{s},
		Parts:     &partRepository{s},
		Movements: &movementRepository{s},
		Knowledge: &knowledgeRepository{s},
		Users:     &userRepository{s},
		Customers: &customerRepository{s},
		Devices:   &deviceRepository{s},
		Sequences: &sequenceRepository{s},
		RMAs:      &rmaRepository{s},
		Audit:     &auditRepository{s},
		Reports:   &reportRepository{s},
	}
}

func paginate[T any](items []T, page repository.Page) []T {
	if page.Offset > 0 {
		if page.Offset >= len(items) {
			return nil
		}
		items = items[page.Offset:]
	}
	if page.Limit > 0 && len(items) > page.Limit {
		items = items[:page.Limit]
	}
	return items
}
