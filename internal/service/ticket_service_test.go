package service

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

var legalTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:            {domain.TicketStatusAssigned, domain.TicketStatusCancelled, domain.TicketStatusResolved, domain.TicketStatusWaitingForParts},
	domain.TicketStatusAssigned:        {domain.TicketStatusWaitingForParts, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress:      {domain.TicketStatusWaitingForParts, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusWaitingForParts: {domain.TicketStatusAssigned, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusResolved:        {domain.TicketStatusClosed},
}

func isLegal(from, to domain.TicketStatus) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func TestUpdateStatusHonoursTransitionTable(t *testing.T) {
	for _, from := range domain.TicketStatuses {
		for _, to := range domain.TicketStatuses {
			from, to := from, to
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				env := newTestEnv(t)
				ticket := env.createTicket(t, "no power")
				env.forceStatus(t, ticket.ID, from)
				before, _ := env.store.Repositories().History.ListByTicket(env.ctx, ticket.ID)

				updated, err := env.svc.Tickets.UpdateStatus(env.ctx, ticket.ID, to, "checked and done", env.techActor())

				after, _ := env.store.Repositories().History.ListByTicket(env.ctx, ticket.ID)
				stored, _ := env.svc.Tickets.Get(env.ctx, ticket.ID)
				switch {
				case from == to:
					if err != nil {
						t.Fatalf("self transition should be a no-op, got %v", err)
					}
					if len(after) != len(before) {
						t.Fatalf("self transition wrote history")
					}
				case isLegal(from, to):
					if err != nil {
						t.Fatalf("expected legal transition, got %v", err)
					}
					if updated.Status != to || stored.Status != to {
						t.Fatalf("expected status %s, got %s", to, stored.Status)
					}
					if len(after) != len(before)+1 {
						t.Fatalf("expected one history entry, got %d new", len(after)-len(before))
					}
					if to.HasResolution() != (stored.Resolution != nil) {
						t.Fatalf("resolution presence does not match status %s", to)
					}
					if to.Terminal() && stored.CompletedAt == nil {
						t.Fatalf("terminal status must stamp completion")
					}
				default:
					expectCode(t, err, apperrors.CodeInvalidTransition)
					if stored.Status != from {
						t.Fatalf("status changed on rejected transition: %s", stored.Status)
					}
				}
			})
		}
	}
}

func TestEndToEndRepairScenario(t *testing.T) {
	env := newTestEnv(t)
	toner := env.createPart(t, "toner", 5)

	ticket := env.createTicket(t, "printer jam")
	if !regexp.MustCompile(`^TCK-\d{4}-\d{6}$`).MatchString(ticket.Code) {
		t.Fatalf("unexpected code format %q", ticket.Code)
	}
	if ticket.Status != domain.TicketStatusOpen || ticket.DeviceID == nil {
		t.Fatalf("unexpected new ticket %+v", ticket)
	}

	if _, err := env.svc.Tickets.Assign(env.ctx, ticket.ID, env.tech.ID, env.admin); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.svc.Tickets.AddDiagnosis(env.ctx, ticket.ID, DiagnosisInput{
		Symptom: "paper stuck", Diagnosis: "worn pickup roller",
	}, env.techActor()); err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	withAction, err := env.svc.Tickets.AddAction(env.ctx, ticket.ID, ActionInput{
		ActionTaken: "replaced toner",
		PartsUsed:   []PartUsageInput{{PartID: toner.ID, Quantity: 1}},
	}, env.techActor())
	if err != nil {
		t.Fatalf("add action: %v", err)
	}
	if got := withAction.Actions[0].PartsUsed[0]; got.PartName != "toner" || got.Quantity != 1 {
		t.Fatalf("unexpected part usage %+v", got)
	}
	if stock := env.stockOf(t, toner.ID); stock != 4 {
		t.Fatalf("expected stock 4, got %d", stock)
	}

	outs, err := env.svc.Inventory.QueryMovements(env.ctx, MovementQuery{PartID: toner.ID, Type: domain.MovementOut}, Pagination{})
	if err != nil {
		t.Fatalf("query movements: %v", err)
	}
	if outs.Total != 1 || outs.Items[0].Quantity != 1 || outs.Items[0].Reference != ticket.Code {
		t.Fatalf("unexpected out movements %+v", outs.Items)
	}

	resolved, err := env.svc.Tickets.Resolve(env.ctx, ticket.ID, ResolveInput{
		RootCause: "empty toner", Solution: "replaced toner cartridge", Tags: []string{"printer"},
	}, env.techActor())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved || resolved.Resolution.PartsConsumedSummary != "toner x1" {
		t.Fatalf("unexpected resolution %+v", resolved.Resolution)
	}

	entry, err := env.svc.Knowledge.CreateFromTicket(env.ctx, ticket.ID, env.techActor())
	if err != nil {
		t.Fatalf("create from ticket: %v", err)
	}
	if entry.IsPublished || entry.Solution != "replaced toner cartridge" || entry.Diagnosis != "empty toner" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if len(entry.RelatedPartIDs) != 1 || entry.RelatedPartIDs[0] != toner.ID {
		t.Fatalf("expected related part toner, got %v", entry.RelatedPartIDs)
	}

	history, err := env.svc.Tickets.History(env.ctx, ticket.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	wantTypes := []domain.TicketChangeType{
		domain.ChangeTypeCreated, domain.ChangeTypeAssignee, domain.ChangeTypeStatus,
		domain.ChangeTypeDiagnosis, domain.ChangeTypeAction, domain.ChangeTypeResolved,
	}
	if len(history) != len(wantTypes) {
		t.Fatalf("expected %d history entries, got %d", len(wantTypes), len(history))
	}
	for i, want := range wantTypes {
		if history[i].ChangeType != want {
			t.Fatalf("history[%d]: expected %s, got %s", i, want, history[i].ChangeType)
		}
	}

	if n := len(env.recorded.ofType(events.EventTicketResolved)); n != 1 {
		t.Fatalf("expected one resolved event, got %d", n)
	}
	if n := len(env.recorded.ofType(events.EventKnowledgeEntryCreated)); n != 1 {
		t.Fatalf("expected one knowledge event, got %d", n)
	}
}

func TestConcurrentActionsNeverOversellStock(t *testing.T) {
	checkConcurrentActionsNeverOversellStock(t, newTestEnv(t))
}

func checkConcurrentActionsNeverOversellStock(t *testing.T, env *testEnv) {
	t.Helper()
	fuser := env.createPart(t, "fuser", 1)
	first := env.createTicket(t, "smudged prints")
	second := env.createTicket(t, "streaks on paper")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, ticket := range []*domain.Ticket{first, second} {
		wg.Add(1)
		go func(i int, ticketID string) {
			defer wg.Done()
			_, errs[i] = env.svc.Tickets.AddAction(env.ctx, ticketID, ActionInput{
				ActionTaken: "replace fuser",
				PartsUsed:   []PartUsageInput{{PartID: fuser.ID, Quantity: 1}},
			}, env.techActor())
		}(i, ticket.ID)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.HasCode(err, apperrors.CodeInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 || insufficient != 1 {
		t.Fatalf("expected one success and one insufficient stock, got %d/%d", succeeded, insufficient)
	}
	if stock := env.stockOf(t, fuser.ID); stock != 0 {
		t.Fatalf("expected stock 0, got %d", stock)
	}
	outs, _ := env.svc.Inventory.QueryMovements(env.ctx, MovementQuery{PartID: fuser.ID, Type: domain.MovementOut}, Pagination{})
	if outs.Total != 1 {
		t.Fatalf("expected exactly one out movement, got %d", outs.Total)
	}
}

func TestFailedActionLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ram := env.createPart(t, "ram", 3)
	ssd := env.createPart(t, "ssd", 0)
	ticket := env.createTicket(t, "slow boot")

	_, err := env.svc.Tickets.AddAction(env.ctx, ticket.ID, ActionInput{
		ActionTaken: "upgrade",
		PartsUsed: []PartUsageInput{
			{PartID: ram.ID, Quantity: 2},
			{PartID: ssd.ID, Quantity: 1},
		},
	}, env.techActor())
	expectCode(t, err, apperrors.CodeInsufficientStock)

	if stock := env.stockOf(t, ram.ID); stock != 3 {
		t.Fatalf("expected ram stock untouched at 3, got %d", stock)
	}
	outs, _ := env.svc.Inventory.QueryMovements(env.ctx, MovementQuery{Type: domain.MovementOut}, Pagination{})
	if outs.Total != 0 {
		t.Fatalf("expected no out movements, got %d", outs.Total)
	}
	stored, _ := env.svc.Tickets.Get(env.ctx, ticket.ID)
	if len(stored.Actions) != 0 {
		t.Fatalf("expected no actions recorded, got %d", len(stored.Actions))
	}
}

func TestClosedTicketCannotBeReassigned(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, "cracked screen")
	env.forceStatus(t, ticket.ID, domain.TicketStatusClosed)

	_, err := env.svc.Tickets.UpdateStatus(env.ctx, ticket.ID, domain.TicketStatusAssigned, "", env.admin)
	expectCode(t, err, apperrors.CodeInvalidTransition)

	stored, _ := env.svc.Tickets.Get(env.ctx, ticket.ID)
	if stored.Status != domain.TicketStatusClosed {
		t.Fatalf("expected closed, got %s", stored.Status)
	}
	_, err = env.svc.Tickets.Assign(env.ctx, ticket.ID, env.tech.ID, env.admin)
	expectCode(t, err, apperrors.CodeInvalidState)
}

func TestResolveTwiceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, "no display")

	first, err := env.svc.Tickets.Resolve(env.ctx, ticket.ID, ResolveInput{Solution: "reseated cable"}, env.techActor())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, err = env.svc.Tickets.Resolve(env.ctx, ticket.ID, ResolveInput{Solution: "something else"}, env.techActor())
	expectCode(t, err, apperrors.CodeInvalidState)

	stored, _ := env.svc.Tickets.Get(env.ctx, ticket.ID)
	if stored.Resolution.Solution != first.Resolution.Solution {
		t.Fatalf("resolution overwritten: %q", stored.Resolution.Solution)
	}

	_, err = env.svc.Tickets.AddAction(env.ctx, ticket.ID, ActionInput{ActionTaken: "late fix"}, env.techActor())
	expectCode(t, err, apperrors.CodeInvalidState)
}

func TestResolveViaStatusRequiresNote(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, "fan noise")

	_, err := env.svc.Tickets.UpdateStatus(env.ctx, ticket.ID, domain.TicketStatusResolved, "  ", env.techActor())
	expectCode(t, err, apperrors.CodeValidation)

	resolved, err := env.svc.Tickets.UpdateStatus(env.ctx, ticket.ID, domain.TicketStatusResolved, "cleaned fan", env.techActor())
	if err != nil {
		t.Fatalf("resolve via status: %v", err)
	}
	if resolved.Resolution == nil || resolved.Resolution.Solution != "cleaned fan" || resolved.Resolution.PartsConsumedSummary != "no parts used" {
		t.Fatalf("unexpected resolution %+v", resolved.Resolution)
	}
}

func TestAssignRequiresActiveTechnician(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, "wifi drops")
	retired := env.seedUser(t, "oldtech", domain.RoleTechnician, false)

	_, err := env.svc.Tickets.Assign(env.ctx, ticket.ID, "missing", env.admin)
	expectCode(t, err, apperrors.CodeNotFound)
	_, err = env.svc.Tickets.Assign(env.ctx, ticket.ID, env.admin.ID, env.admin)
	expectCode(t, err, apperrors.CodeValidation)
	_, err = env.svc.Tickets.Assign(env.ctx, ticket.ID, retired.ID, env.admin)
	expectCode(t, err, apperrors.CodeValidation)

	stored, _ := env.svc.Tickets.Get(env.ctx, ticket.ID)
	if stored.Status != domain.TicketStatusOpen || stored.AssigneeID != nil {
		t.Fatalf("failed assignment changed the ticket: %+v", stored)
	}
}

func TestConcurrentCreateIssuesUniqueCodes(t *testing.T) {
	checkConcurrentCreateIssuesUniqueCodes(t, newTestEnv(t))
}

func checkConcurrentCreateIssuesUniqueCodes(t *testing.T, env *testEnv) {
	t.Helper()
	const n = 25

	var wg sync.WaitGroup
	codes := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := env.svc.Tickets.Create(env.ctx, CreateTicketInput{
				Subject:          "bulk",
				InitialComplaint: "does not boot",
				Customer:         &CustomerInput{Name: "Sari", Phone: "0813 1111 2222"},
			}, env.admin)
			errs[i] = err
			if err == nil {
				codes[i] = ticket.Code
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("create %d: %v", i, errs[i])
		}
		if seen[codes[i]] {
			t.Fatalf("duplicate code %s", codes[i])
		}
		seen[codes[i]] = true
	}
	customers, _ := env.svc.Customers.List(env.ctx, "Sari", Pagination{})
	if customers.Total != 1 {
		t.Fatalf("expected customer upserted once, got %d", customers.Total)
	}
}

func TestCreateReusesCustomerAndDevice(t *testing.T) {
	env := newTestEnv(t)
	first := env.createTicket(t, "paper jam")
	second := env.createTicket(t, "paper jam again")

	if first.CustomerID != second.CustomerID {
		t.Fatalf("expected same customer")
	}
	if first.DeviceID == nil || second.DeviceID == nil || *first.DeviceID != *second.DeviceID {
		t.Fatalf("expected same device")
	}
	detail, err := env.svc.Customers.Get(env.ctx, first.CustomerID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if len(detail.Devices) != 1 {
		t.Fatalf("expected one device, got %d", len(detail.Devices))
	}

	_, err = env.svc.Tickets.Create(env.ctx, CreateTicketInput{Subject: "x", InitialComplaint: "y"}, env.admin)
	expectCode(t, err, apperrors.CodeValidation)
}

func TestUpdatePriority(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, "battery swelling")

	updated, err := env.svc.Tickets.UpdatePriority(env.ctx, ticket.ID, domain.TicketPriorityUrgent, env.admin)
	if err != nil {
		t.Fatalf("update priority: %v", err)
	}
	if updated.Priority != domain.TicketPriorityUrgent {
		t.Fatalf("expected urgent, got %s", updated.Priority)
	}
	_, err = env.svc.Tickets.UpdatePriority(env.ctx, ticket.ID, "whenever", env.admin)
	expectCode(t, err, apperrors.CodeValidation)

	env.forceStatus(t, ticket.ID, domain.TicketStatusCancelled)
	_, err = env.svc.Tickets.UpdatePriority(env.ctx, ticket.ID, domain.TicketPriorityLow, env.admin)
	expectCode(t, err, apperrors.CodeInvalidState)
}

func TestListTicketsFilters(t *testing.T) {
	env := newTestEnv(t)
	a := env.createTicket(t, "keyboard dead")
	env.createTicket(t, "hinge broken")
	if _, err := env.svc.Tickets.Assign(env.ctx, a.ID, env.tech.ID, env.admin); err != nil {
		t.Fatalf("assign: %v", err)
	}

	assigned, err := env.svc.Tickets.List(env.ctx, TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusAssigned}}, Pagination{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if assigned.Total != 1 || assigned.Items[0].ID != a.ID {
		t.Fatalf("unexpected assigned listing %+v", assigned)
	}

	page, _ := env.svc.Tickets.List(env.ctx, TicketListFilter{}, Pagination{Limit: 1})
	if page.Total != 2 || len(page.Items) != 1 {
		t.Fatalf("expected total 2 with one item, got %d/%d", page.Total, len(page.Items))
	}

	future := time.Now().Add(time.Hour)
	none, _ := env.svc.Tickets.List(env.ctx, TicketListFilter{CreatedFrom: &future}, Pagination{})
	if none.Total != 0 {
		t.Fatalf("expected nothing created in the future, got %d", none.Total)
	}
}

func TestGetMissingTicket(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Tickets.Get(env.ctx, "missing")
	expectCode(t, err, apperrors.CodeNotFound)
	if errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("service errors must not leak repository sentinels: %v", err)
	}
}

func TestStatusAssignedRequiresTechnician(t *testing.T) {
	env := newTestEnv(t)

	open := env.createTicket(t, "no display")
	_, err := env.svc.Tickets.UpdateStatus(env.ctx, open.ID, domain.TicketStatusAssigned, "", env.admin)
	expectCode(t, err, apperrors.CodeInvalidState)

	waiting := env.createTicket(t, "cracked hinge")
	if _, err := env.svc.Tickets.UpdateStatus(env.ctx, waiting.ID, domain.TicketStatusWaitingForParts, "hinge ordered", env.admin); err != nil {
		t.Fatalf("to waiting_for_parts: %v", err)
	}
	_, err = env.svc.Tickets.UpdateStatus(env.ctx, waiting.ID, domain.TicketStatusAssigned, "", env.admin)
	expectCode(t, err, apperrors.CodeInvalidState)

	for _, id := range []string{open.ID, waiting.ID} {
		stored, _ := env.svc.Tickets.Get(env.ctx, id)
		if stored.Status == domain.TicketStatusAssigned || stored.AssigneeID != nil {
			t.Fatalf("ticket %s reached assigned without a technician: %+v", id, stored)
		}
	}

	assigned, err := env.svc.Tickets.Assign(env.ctx, open.ID, env.tech.ID, env.admin)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != domain.TicketStatusAssigned || assigned.AssigneeID == nil || *assigned.AssigneeID != env.tech.ID {
		t.Fatalf("assign did not set technician: %+v", assigned)
	}
}

func TestDeviceStaysWithItsCustomer(t *testing.T) {
	env := newTestEnv(t)
	first := env.createTicket(t, "paper jam")

	_, err := env.svc.Tickets.Create(env.ctx, CreateTicketInput{
		Subject:          "Repair: paper jam",
		InitialComplaint: "paper jam",
		Customer:         &CustomerInput{Name: "Andi", Phone: "0812-9999-0002"},
		Device:           &DeviceInput{Brand: "Epson", Model: "L3110", SerialNumber: "SN-001"},
	}, env.admin)
	expectCode(t, err, apperrors.CodeValidation)

	_, err = env.svc.Tickets.Create(env.ctx, CreateTicketInput{
		Subject:          "Repair: paper jam",
		InitialComplaint: "paper jam",
		Customer:         &CustomerInput{Name: "Andi", Phone: "0812-9999-0002"},
		DeviceID:         *first.DeviceID,
	}, env.admin)
	expectCode(t, err, apperrors.CodeValidation)

	page, _ := env.svc.Tickets.List(env.ctx, TicketListFilter{}, Pagination{})
	if page.Total != 1 {
		t.Fatalf("rejected intakes must not create tickets, got %d", page.Total)
	}
}
