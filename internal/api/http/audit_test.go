package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/spec-kit/repair-service/internal/api/http/handlers"
)

// Uses fiber's default mutable context so entries must not share request buffers.
func TestAuditEntriesKeepTheirOwnRequestData(t *testing.T) {
	sink := &recordingSink{}
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(auditMiddleware(sink))
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		handlers.TagResource(c, "item", c.Params("id"))
		return c.SendStatus(http.StatusOK)
	})
	app.Post("/login", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusUnauthorized)
	})

	requests := []struct {
		method string
		path   string
		status int
		route  string
		id     string
	}{
		{http.MethodGet, "/items/first-item-id", http.StatusOK, "GET /items/:id", "first-item-id"},
		{http.MethodPost, "/login", http.StatusUnauthorized, "POST /login", ""},
		{http.MethodGet, "/items/2", http.StatusOK, "GET /items/:id", "2"},
		{http.MethodGet, "/items/a-considerably-longer-identifier", http.StatusOK, "GET /items/:id", "a-considerably-longer-identifier"},
	}
	for _, r := range requests {
		resp, err := app.Test(httptest.NewRequest(r.method, r.path, strings.NewReader("")), -1)
		if err != nil {
			t.Fatalf("%s %s: %v", r.method, r.path, err)
		}
		resp.Body.Close()
	}

	entries := sink.all()
	if len(entries) != len(requests) {
		t.Fatalf("expected %d entries, got %d", len(requests), len(entries))
	}
	seenIDs := map[string]bool{}
	for i, r := range requests {
		got := entries[i]
		if got.Method != r.method || got.Path != r.path || got.Status != r.status {
			t.Fatalf("entry %d: got %s %s %d, want %s %s %d", i, got.Method, got.Path, got.Status, r.method, r.path, r.status)
		}
		if got.RouteKey != r.route {
			t.Fatalf("entry %d: route key %q, want %q", i, got.RouteKey, r.route)
		}
		if got.ResourceID != r.id {
			t.Fatalf("entry %d: resource id %q, want %q", i, got.ResourceID, r.id)
		}
		if got.RequestID == "" || seenIDs[got.RequestID] {
			t.Fatalf("entry %d: request id %q missing or reused", i, got.RequestID)
		}
		seenIDs[got.RequestID] = true
	}
}
