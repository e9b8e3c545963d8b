package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/persistence/pgtest"
)

func TestPostgresApplyStockDeltaGuard(t *testing.T) {
	ctx := context.Background()
	repos := NewPostgresStore(pgtest.Pool(t)).Repositories()

	part := &domain.Part{Name: "Fuser", Stock: 1, Category: domain.PartCategoryOthers, Unit: "pcs", Status: domain.PartStatusActive}
	if err := repos.Parts.Create(ctx, part); err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := repos.Parts.ApplyStockDelta(ctx, part.ID, -2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	updated, err := repos.Parts.ApplyStockDelta(ctx, part.ID, -1)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if updated.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", updated.Stock)
	}
	if _, err := repos.Parts.ApplyStockDelta(ctx, "00000000-0000-0000-0000-000000000000", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresConcurrentDeltasNeverGoNegative(t *testing.T) {
	ctx := context.Background()
	store := NewPostgresStore(pgtest.Pool(t))

	part := &domain.Part{Name: "Roller", Stock: 5, Category: domain.PartCategoryOthers, Unit: "pcs", Status: domain.PartStatusActive}
	if err := store.Repositories().Parts.Create(ctx, part); err != nil {
		t.Fatalf("create part: %v", err)
	}

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTx(ctx, func(ctx context.Context, tx Repositories) error {
				_, err := tx.Parts.ApplyStockDelta(ctx, part.ID, -1)
				return err
			})
			switch {
			case err == nil:
				mu.Lock()
				succeeded++
				mu.Unlock()
			case !errors.Is(err, ErrInsufficientStock):
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected 5 successful decrements, got %d", succeeded)
	}
	reloaded, err := store.Repositories().Parts.GetByID(ctx, part.ID)
	if err != nil {
		t.Fatalf("get part: %v", err)
	}
	if reloaded.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", reloaded.Stock)
	}
}

func TestPostgresSequenceRespectsFloor(t *testing.T) {
	ctx := context.Background()
	repos := NewPostgresStore(pgtest.Pool(t)).Repositories()

	steps := []struct {
		scope string
		floor int64
		want  int64
	}{
		{"TCK-2026", 41, 42},
		{"TCK-2026", 0, 43},
		{"TCK-2026", 10, 44},
		{"TCK-2027", 0, 1},
	}
	for _, step := range steps {
		got, err := repos.Sequences.Next(ctx, step.scope, step.floor)
		if err != nil {
			t.Fatalf("next %s: %v", step.scope, err)
		}
		if got != step.want {
			t.Fatalf("next %s floor %d: got %d, want %d", step.scope, step.floor, got, step.want)
		}
	}
}

func TestPostgresMaxCodeOrdersByWidthThenValue(t *testing.T) {
	ctx := context.Background()
	repos := NewPostgresStore(pgtest.Pool(t)).Repositories()

	user := &domain.User{Username: "frontdesk", FullName: "Front Desk", PasswordHash: "x", Role: domain.RoleAdmin, Active: true}
	if err := repos.Users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	customer := &domain.Customer{Name: "Budi", Phone: "081200000001"}
	if err := repos.Customers.Create(ctx, customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}

	if code, err := repos.Tickets.MaxCode(ctx, "TCK-2026-"); err != nil || code != "" {
		t.Fatalf("expected no code on empty table, got %q %v", code, err)
	}
	for _, code := range []string{"TCK-2026-000010", "TCK-2026-1000000", "TCK-2026-000009", "TCK-2025-999999"} {
		ticket := &domain.Ticket{
			Code:             code,
			Subject:          "seed",
			InitialComplaint: "seed",
			CustomerID:       customer.ID,
			CreatedBy:        user.ID,
			Priority:         domain.TicketPriorityMedium,
			Status:           domain.TicketStatusOpen,
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			t.Fatalf("create ticket %s: %v", code, err)
		}
	}

	code, err := repos.Tickets.MaxCode(ctx, "TCK-2026-")
	if err != nil {
		t.Fatalf("max code: %v", err)
	}
	if code != "TCK-2026-1000000" {
		t.Fatalf("expected widest code, got %s", code)
	}
}
