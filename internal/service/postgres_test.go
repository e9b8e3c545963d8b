package service

import (
	"testing"

	"github.com/spec-kit/repair-service/internal/persistence/pgtest"
	"github.com/spec-kit/repair-service/internal/repository"
)

func newPostgresTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, repository.NewPostgresStore(pgtest.Pool(t)))
}

func TestPostgresConcurrentActionsNeverOversellStock(t *testing.T) {
	checkConcurrentActionsNeverOversellStock(t, newPostgresTestEnv(t))
}

func TestPostgresConcurrentCreateIssuesUniqueCodes(t *testing.T) {
	checkConcurrentCreateIssuesUniqueCodes(t, newPostgresTestEnv(t))
}

func TestPostgresCreateReusesCustomerAndDevice(t *testing.T) {
	env := newPostgresTestEnv(t)
	first := env.createTicket(t, "paper jam")
	second := env.createTicket(t, "paper jam again")

	if first.CustomerID != second.CustomerID {
		t.Fatalf("expected same customer")
	}
	if first.DeviceID == nil || second.DeviceID == nil || *first.DeviceID != *second.DeviceID {
		t.Fatalf("expected same device")
	}
	if first.Code == second.Code {
		t.Fatalf("expected distinct codes, both %s", first.Code)
	}
}
