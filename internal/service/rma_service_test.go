package service

import (
	"regexp"
	"testing"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

func TestNextRmaStatusTable(t *testing.T) {
	cases := []struct {
		from   domain.RmaStatus
		action domain.RmaActionType
		want   domain.RmaStatus
		ok     bool
	}{
		{domain.RmaStatusNew, domain.RmaActionReceiveUnit, domain.RmaStatusReceived, true},
		{domain.RmaStatusNew, domain.RmaActionSendToVendor, "", false},
		{domain.RmaStatusReceived, domain.RmaActionSendToVendor, domain.RmaStatusSentToVendor, true},
		{domain.RmaStatusSentToVendor, domain.RmaActionVendorUpdate, domain.RmaStatusInVendor, true},
		{domain.RmaStatusInVendor, domain.RmaActionReplace, domain.RmaStatusReplaced, true},
		{domain.RmaStatusInVendor, domain.RmaActionRepair, domain.RmaStatusRepaired, true},
		{domain.RmaStatusInVendor, domain.RmaActionReject, domain.RmaStatusRejected, true},
		{domain.RmaStatusRejected, domain.RmaActionReturnToCustomer, domain.RmaStatusReturned, true},
		{domain.RmaStatusRepaired, domain.RmaActionRepair, "", false},
		{domain.RmaStatusInVendor, domain.RmaActionCancel, domain.RmaStatusCancelled, true},
		{domain.RmaStatusReturned, domain.RmaActionCancel, "", false},
		{domain.RmaStatusCancelled, domain.RmaActionReceiveUnit, "", false},
	}
	for _, tc := range cases {
		got, ok := NextRmaStatus(tc.from, tc.action)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s + %s: expected (%q, %v), got (%q, %v)", tc.from, tc.action, tc.want, tc.ok, got, ok)
		}
	}
}

func TestRmaLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, "dead SSD")

	rma, err := env.svc.RMAs.Create(env.ctx, CreateRmaInput{
		Title: "SSD warranty", CustomerName: "Budi", ProductName: "SSD 512GB", Serial: "X1", TicketID: ticket.ID,
	}, env.admin)
	if err != nil {
		t.Fatalf("create rma: %v", err)
	}
	if !regexp.MustCompile(`^RMA-\d{4}-\d{5}$`).MatchString(rma.Code) {
		t.Fatalf("unexpected code %q", rma.Code)
	}

	for _, action := range []domain.RmaActionType{
		domain.RmaActionReceiveUnit, domain.RmaActionSendToVendor, domain.RmaActionVendorUpdate,
		domain.RmaActionReplace, domain.RmaActionReturnToCustomer,
	} {
		rma, err = env.svc.RMAs.AddAction(env.ctx, rma.ID, RmaActionInput{Type: action}, env.admin)
		if err != nil {
			t.Fatalf("action %s: %v", action, err)
		}
	}
	if rma.Status != domain.RmaStatusReturned || len(rma.Actions) != 5 {
		t.Fatalf("unexpected rma %+v", rma)
	}

	_, err = env.svc.RMAs.AddAction(env.ctx, rma.ID, RmaActionInput{Type: domain.RmaActionCancel}, env.admin)
	expectCode(t, err, apperrors.CodeInvalidTransition)

	stored, _ := env.svc.RMAs.Get(env.ctx, rma.ID)
	if len(stored.Actions) != 5 {
		t.Fatalf("rejected action was stored")
	}

	_, err = env.svc.RMAs.Create(env.ctx, CreateRmaInput{
		Title: "x", CustomerName: "y", ProductName: "z", TicketID: "missing",
	}, env.admin)
	expectCode(t, err, apperrors.CodeNotFound)

	second, err := env.svc.RMAs.Create(env.ctx, CreateRmaInput{Title: "PSU", CustomerName: "Sari", ProductName: "PSU"}, env.admin)
	if err != nil {
		t.Fatalf("second rma: %v", err)
	}
	if second.Code <= rma.Code {
		t.Fatalf("expected increasing codes, got %s then %s", rma.Code, second.Code)
	}
}
