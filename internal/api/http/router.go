package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Inventory      *handlers.InventoryHandler
	Knowledge      *handlers.KnowledgeHandler
	RMAs           *handlers.RmaHandler
	Customers      *handlers.CustomersHandler
	Reports        *handlers.ReportsHandler
	Audit          *handlers.AuditHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Users.Login)

	staff := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole(auth.Staff...))
	managers := auth.RequireRole(auth.Managers...)

	staff.Get("/auth/me", cfg.Users.Me)
	staff.Post("/auth/password/change", cfg.Users.ChangePassword)

	staff.Post("/users", managers, cfg.Users.CreateUser)
	staff.Get("/users", managers, cfg.Users.ListUsers)
	staff.Get("/users/:id", managers, cfg.Users.GetUser)
	staff.Patch("/users/:id", managers, cfg.Users.UpdateUser)

	staff.Post("/tickets", cfg.Tickets.CreateTicket)
	staff.Get("/tickets", cfg.Tickets.ListTickets)
	staff.Get("/tickets/:id", cfg.Tickets.GetTicket)
	staff.Get("/tickets/:id/history", cfg.Tickets.History)
	staff.Post("/tickets/:id/assign", managers, cfg.Tickets.Assign)
	staff.Post("/tickets/:id/diagnostics", cfg.Tickets.AddDiagnosis)
	staff.Post("/tickets/:id/actions", cfg.Tickets.AddAction)
	staff.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	staff.Patch("/tickets/:id/priority", cfg.Tickets.UpdatePriority)
	staff.Post("/tickets/:id/resolve", cfg.Tickets.Resolve)

	staff.Get("/parts", cfg.Inventory.ListParts)
	staff.Get("/parts/:id", cfg.Inventory.GetPart)
	staff.Post("/parts", managers, cfg.Inventory.CreatePart)
	staff.Patch("/parts/:id", managers, cfg.Inventory.UpdatePart)
	staff.Get("/parts/:id/reconcile", managers, cfg.Inventory.Reconcile)

	staff.Get("/stock-movements", cfg.Inventory.ListMovements)
	staff.Get("/stock-movements/export", managers, cfg.Inventory.ExportMovements)
	staff.Post("/stock-movements", managers, cfg.Inventory.RecordMovement)

	staff.Get("/knowledge", cfg.Knowledge.List)
	staff.Post("/knowledge", cfg.Knowledge.Create)
	staff.Post("/knowledge/from-ticket", cfg.Knowledge.CreateFromTicket)
	staff.Get("/knowledge/:id", cfg.Knowledge.Get)
	staff.Post("/knowledge/:id/publish", managers, cfg.Knowledge.Publish)
	staff.Post("/knowledge/:id/unpublish", managers, cfg.Knowledge.Unpublish)

	staff.Get("/rma", cfg.RMAs.List)
	staff.Post("/rma", cfg.RMAs.Create)
	staff.Get("/rma/:id", cfg.RMAs.Get)
	staff.Post("/rma/:id/actions", cfg.RMAs.AddAction)

	staff.Get("/customers", cfg.Customers.List)
	staff.Get("/customers/:id", cfg.Customers.Get)

	staff.Get("/reports/tickets", managers, cfg.Reports.TicketSummary)
	staff.Get("/reports/part-usage", managers, cfg.Reports.PartUsage)
	staff.Get("/reports/common-issues", managers, cfg.Reports.CommonIssues)

	staff.Get("/audit-logs", auth.RequireRole(auth.SysAdmins...), cfg.Audit.List)
}
