package service

import (
	"context"
	"sync"
	"testing"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/repository/memory"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordedEvents) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	ctx      context.Context
	store    repository.Store
	svc      *Services
	recorded *recordedEvents
	admin    domain.Actor
	sysadmin domain.Actor
	tech     *domain.User
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15, BcryptCost: 4},
		Sequence: config.SequenceConfig{
			TicketPrefix: "TCK",
			TicketWidth:  6,
			RmaPrefix:    "RMA",
			RmaWidth:     5,
			MaxAttempts:  5,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, memory.NewStore())
}

func newTestEnvWith(t *testing.T, store repository.Store) *testEnv {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	recorded := &recordedEvents{}
	dispatcher.SubscribeAll(recorded.handle)

	env := &testEnv{
		ctx:      context.Background(),
		store:    store,
		svc:      NewServices(testConfig(), store, dispatcher, nil, nil),
		recorded: recorded,
	}
	env.sysadmin = domain.ActorOf(env.seedUser(t, "root", domain.RoleSysAdmin, true))
	env.admin = domain.ActorOf(env.seedUser(t, "frontdesk", domain.RoleAdmin, true))
	env.tech = env.seedUser(t, "tech1", domain.RoleTechnician, true)
	return env
}

func (e *testEnv) seedUser(t *testing.T, username string, role domain.Role, active bool) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("password123", 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &domain.User{Username: username, FullName: username, PasswordHash: hash, Role: role, Active: active}
	if err := e.store.Repositories().Users.Create(e.ctx, user); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func (e *testEnv) techActor() domain.Actor {
	return domain.ActorOf(e.tech)
}

func (e *testEnv) createPart(t *testing.T, name string, stock int) *domain.Part {
	t.Helper()
	part, err := e.svc.Inventory.CreatePart(e.ctx, CreatePartInput{Name: name, InitialStock: stock, MinStock: 1}, e.admin)
	if err != nil {
		t.Fatalf("create part %s: %v", name, err)
	}
	return part
}

func (e *testEnv) createTicket(t *testing.T, complaint string) *domain.Ticket {
	t.Helper()
	ticket, err := e.svc.Tickets.Create(e.ctx, CreateTicketInput{
		Subject:          "Repair: " + complaint,
		InitialComplaint: complaint,
		Customer:         &CustomerInput{Name: "Budi", Phone: "0812-0000-0001"},
		Device:           &DeviceInput{Brand: "Epson", Model: "L3110", SerialNumber: "SN-001"},
	}, e.admin)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

// forceStatus writes a ticket straight to the store in the given status,
// assigned to the seeded technician.
func (e *testEnv) forceStatus(t *testing.T, ticketID string, status domain.TicketStatus) {
	t.Helper()
	repos := e.store.Repositories()
	ticket, err := repos.Tickets.GetByID(e.ctx, ticketID)
	if err != nil {
		t.Fatalf("load ticket: %v", err)
	}
	ticket.Status = status
	ticket.AssigneeID = &e.tech.ID
	ticket.Resolution = nil
	if status.HasResolution() {
		ticket.Resolution = &domain.Resolution{Solution: "seeded", ResolvedBy: e.tech.ID}
	}
	if err := repos.Tickets.Update(e.ctx, ticket); err != nil {
		t.Fatalf("update ticket: %v", err)
	}
}

func (e *testEnv) stockOf(t *testing.T, partID string) int {
	t.Helper()
	part, err := e.store.Repositories().Parts.GetByID(e.ctx, partID)
	if err != nil {
		t.Fatalf("load part: %v", err)
	}
	return part.Stock
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}
