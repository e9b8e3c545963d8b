package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()

	part := &domain.Part{Name: "Thermal paste", Stock: 3, Status: domain.PartStatusActive}
	if err := repos.Parts.Create(ctx, part); err != nil {
		t.Fatalf("create part: %v", err)
	}

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if _, err := tx.Parts.ApplyStockDelta(ctx, part.ID, -2); err != nil {
			return err
		}
		if err := tx.Movements.Create(ctx, &domain.StockMovement{PartID: part.ID, Type: domain.MovementOut, Quantity: 2}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	reloaded, err := repos.Parts.GetByID(ctx, part.ID)
	if err != nil {
		t.Fatalf("get part: %v", err)
	}
	if reloaded.Stock != 3 {
		t.Fatalf("expected stock 3 after rollback, got %d", reloaded.Stock)
	}
	_, total, err := repos.Movements.List(ctx, repository.MovementFilter{PartID: part.ID})
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no movements after rollback, got %d", total)
	}
}

func TestApplyStockDeltaGuardsNegative(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	part := &domain.Part{Name: "Fuser", Stock: 1}
	if err := repos.Parts.Create(ctx, part); err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := repos.Parts.ApplyStockDelta(ctx, part.ID, -2); !errors.Is(err, repository.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	updated, err := repos.Parts.ApplyStockDelta(ctx, part.ID, -1)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if updated.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", updated.Stock)
	}
	if _, err := repos.Parts.ApplyStockDelta(ctx, "missing", 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSequenceRespectsFloor(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	v, err := repos.Sequences.Next(ctx, "TCK-2026", 41)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	v, _ = repos.Sequences.Next(ctx, "TCK-2026", 0)
	if v != 43 {
		t.Fatalf("expected 43, got %d", v)
	}
	v, _ = repos.Sequences.Next(ctx, "TCK-2027", 0)
	if v != 1 {
		t.Fatalf("expected new scope to start at 1, got %d", v)
	}
}

func TestReturnedEntitiesAreCopies(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	ticket := &domain.Ticket{Code: "TCK-2026-000001", Status: domain.TicketStatusOpen, Tags: []string{"laptop"}}
	if err := repos.Tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	loaded, _ := repos.Tickets.GetByID(ctx, ticket.ID)
	loaded.Tags[0] = "mutated"
	loaded.Status = domain.TicketStatusClosed

	again, _ := repos.Tickets.GetByID(ctx, ticket.ID)
	if again.Tags[0] != "laptop" || again.Status != domain.TicketStatusOpen {
		t.Fatalf("stored ticket was mutated through a returned copy: %+v", again)
	}
	if err := repos.Tickets.Create(ctx, &domain.Ticket{Code: ticket.Code}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate code error, got %v", err)
	}
}

func TestKnowledgeUniqueSourceTicket(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	source := "ticket-1"

	if err := repos.Knowledge.Create(ctx, &domain.KnowledgeEntry{Title: "a", SourceTicketID: &source}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repos.Knowledge.Create(ctx, &domain.KnowledgeEntry{Title: "b", SourceTicketID: &source}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if err := repos.Knowledge.Create(ctx, &domain.KnowledgeEntry{Title: "manual"}); err != nil {
		t.Fatalf("manual entries need no source: %v", err)
	}
}
