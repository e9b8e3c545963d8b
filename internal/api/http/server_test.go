package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/repository/memory"
	"github.com/spec-kit/repair-service/internal/service"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (s *recordingSink) Enqueue(entry domain.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordingSink) all() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditLog(nil), s.entries...)
}

type testServer struct {
	app     *fiber.App
	sink    *recordingSink
	metrics *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{
		Auth: config.AuthConfig{JWTSecret: "http-secret", AccessTokenTTLMinutes: 15, BcryptCost: 4},
		Sequence: config.SequenceConfig{
			TicketPrefix: "TCK",
			TicketWidth:  6,
			RmaPrefix:    "RMA",
			RmaWidth:     5,
			MaxAttempts:  5,
		},
	}
	store := memory.NewStore()
	services := service.NewServices(cfg, store, events.NewInMemoryDispatcher(), nil, nil)
	if _, err := services.Users.EnsureAdmin(context.Background(), "root", "Root", "rootpass123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	srv := &testServer{sink: &recordingSink{}, metrics: observability.NewMetrics()}
	srv.app = NewServer(ServerConfig{
		Name:     "repair-service",
		Version:  "test",
		Store:    store,
		Services: services,
		Audit:    srv.sink,
		Metrics:  srv.metrics,
	})
	return srv
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d", username, status)
	}
	var auth struct {
		Token string `json:"token"`
	}
	mustDecode(t, env.Data, &auth)
	return auth.Token
}

func mustDecode(t *testing.T, raw json.RawMessage, out any) {
	t.Helper()
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestRepairFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	rootToken := srv.login(t, "root", "rootpass123")

	status, env := srv.do(t, http.MethodPost, "/api/v1/users", rootToken, map[string]string{
		"username":  "tech1",
		"full_name": "Tech One",
		"password":  "techpass123",
		"role":      "Teknisi",
	})
	if status != http.StatusCreated {
		t.Fatalf("create user: status %d", status)
	}
	var tech struct {
		ID string `json:"id"`
	}
	mustDecode(t, env.Data, &tech)
	techToken := srv.login(t, "tech1", "techpass123")

	status, env = srv.do(t, http.MethodPost, "/api/v1/parts", rootToken, map[string]any{
		"name":          "Print head",
		"initial_stock": 2,
		"min_stock":     1,
	})
	if status != http.StatusCreated {
		t.Fatalf("create part: status %d", status)
	}
	var part struct {
		ID    string `json:"id"`
		Stock int    `json:"stock"`
	}
	mustDecode(t, env.Data, &part)
	if part.Stock != 2 {
		t.Fatalf("expected initial stock 2, got %d", part.Stock)
	}

	status, env = srv.do(t, http.MethodPost, "/api/v1/tickets", techToken, map[string]any{
		"subject":           "Printer does not feed paper",
		"initial_complaint": "Paper jams on every page",
		"customer":          map[string]string{"name": "Budi", "phone": "0812-0000-0001"},
		"device":            map[string]string{"brand": "Epson", "model": "L3110", "serial_number": "SN-001"},
	})
	if status != http.StatusCreated {
		t.Fatalf("create ticket: status %d", status)
	}
	var ticket struct {
		ID     string `json:"id"`
		Code   string `json:"code"`
		Status string `json:"status"`
	}
	mustDecode(t, env.Data, &ticket)
	if ticket.Code == "" || ticket.Status != string(domain.TicketStatusOpen) {
		t.Fatalf("unexpected ticket %+v", ticket)
	}

	status, _ = srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/assign", techToken, map[string]string{
		"technician_id": tech.ID,
	})
	if status != http.StatusForbidden {
		t.Fatalf("technician assigning: expected 403, got %d", status)
	}
	status, _ = srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/assign", rootToken, map[string]string{
		"technician_id": tech.ID,
	})
	if status != http.StatusOK {
		t.Fatalf("assign: status %d", status)
	}

	status, env = srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/actions", techToken, map[string]any{
		"action_taken": "Replace print head",
		"parts_used":   []map[string]any{{"part_id": part.ID, "quantity": 3}},
	})
	if status != http.StatusConflict || env.Error == nil || env.Error.Code != "INSUFFICIENT_STOCK" {
		t.Fatalf("expected insufficient stock conflict, got %d %+v", status, env.Error)
	}

	status, _ = srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/actions", techToken, map[string]any{
		"action_taken": "Replace print head",
		"parts_used":   []map[string]any{{"part_id": part.ID, "quantity": 1}},
	})
	if status != http.StatusCreated {
		t.Fatalf("add action: status %d", status)
	}

	status, env = srv.do(t, http.MethodGet, "/api/v1/parts/"+part.ID, techToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get part: status %d", status)
	}
	mustDecode(t, env.Data, &part)
	if part.Stock != 1 {
		t.Fatalf("expected stock 1 after consumption, got %d", part.Stock)
	}

	status, env = srv.do(t, http.MethodPatch, "/api/v1/tickets/"+ticket.ID+"/status", techToken, map[string]string{
		"status": "closed",
	})
	if status != http.StatusConflict || env.Error == nil || env.Error.Code != "INVALID_TRANSITION" {
		t.Fatalf("expected invalid transition, got %d %+v", status, env.Error)
	}

	status, env = srv.do(t, http.MethodGet, "/api/v1/tickets/"+ticket.Code, techToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get by code: status %d", status)
	}
	var byCode struct {
		ID string `json:"id"`
	}
	mustDecode(t, env.Data, &byCode)
	if byCode.ID != ticket.ID {
		t.Fatalf("lookup by code returned %s, want %s", byCode.ID, ticket.ID)
	}
}

func TestAuthenticationAndRoleGates(t *testing.T) {
	srv := newTestServer(t)

	status, env := srv.do(t, http.MethodGet, "/api/v1/tickets", "", nil)
	if status != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected 401, got %d %+v", status, env.Error)
	}

	status, _ = srv.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "root",
		"password": "wrong-password",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", status)
	}

	rootToken := srv.login(t, "root", "rootpass123")
	status, _ = srv.do(t, http.MethodPost, "/api/v1/users", rootToken, map[string]string{
		"username":  "tech2",
		"full_name": "Tech Two",
		"password":  "techpass123",
		"role":      "Teknisi",
	})
	if status != http.StatusCreated {
		t.Fatalf("create user: status %d", status)
	}
	techToken := srv.login(t, "tech2", "techpass123")

	for _, path := range []string{"/api/v1/users", "/api/v1/reports/tickets", "/api/v1/audit-logs"} {
		if status, _ := srv.do(t, http.MethodGet, path, techToken, nil); status != http.StatusForbidden {
			t.Fatalf("%s as technician: expected 403, got %d", path, status)
		}
	}
	if status, _ := srv.do(t, http.MethodGet, "/api/v1/audit-logs", rootToken, nil); status != http.StatusOK {
		t.Fatalf("audit logs as sysadmin: expected 200, got %d", status)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "root", "rootpass123")

	status, env := srv.do(t, http.MethodGet, "/api/v1/tickets/does-not-exist", token, nil)
	if status != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %d %+v", status, env.Error)
	}

	status, env = srv.do(t, http.MethodPost, "/api/v1/tickets", token, map[string]any{"subject": ""})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %d %+v", status, env.Error)
	}

	status, env = srv.do(t, http.MethodGet, "/no-such-route", "", nil)
	if status != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("unmatched route: expected NOT_FOUND, got %d %+v", status, env.Error)
	}
}

func TestAuditAndMetricsObserveFinalStatus(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "root", "rootpass123")

	if status, _ := srv.do(t, http.MethodGet, "/api/v1/parts/missing", token, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if status, _ := srv.do(t, http.MethodGet, "/health/live", "", nil); status != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", status)
	}

	var found bool
	for _, entry := range srv.sink.all() {
		if entry.Path == "/health/live" {
			t.Fatalf("health probes must not be audited")
		}
		if entry.Path == "/api/v1/parts/missing" {
			found = true
			if entry.Status != http.StatusNotFound {
				t.Fatalf("audit saw status %d, want 404", entry.Status)
			}
			if entry.ActorID == nil {
				t.Fatalf("audit entry lacks actor")
			}
			if entry.RouteKey != "GET /api/v1/parts/:id" {
				t.Fatalf("unexpected route key %q", entry.RouteKey)
			}
			if entry.RequestID == "" {
				t.Fatalf("audit entry lacks request id")
			}
		}
	}
	if !found {
		t.Fatalf("request was not audited")
	}

	snapshot := srv.metrics.Snapshot()
	if len(snapshot.Errors) == 0 {
		t.Fatalf("expected error counters to be recorded")
	}
}
