package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/service"
)

// ServerConfig collects everything needed to assemble the HTTP app.
type ServerConfig struct {
	Name        string
	Version     string
	Development bool
	Timeout     time.Duration
	BodyLimit   int

	Store        repository.Store
	Services     *service.Services
	Dependencies map[string]handlers.Pinger
	Audit        AuditSink
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewServer builds the fiber app with middleware and routes attached.
func NewServer(cfg ServerConfig) *fiber.App {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 4 * 1024 * 1024
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		Immutable:             true,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	RegisterMiddlewares(app, MiddlewareConfig{
		Logger:      cfg.Logger,
		Metrics:     cfg.Metrics,
		Timeout:     cfg.Timeout,
		Development: cfg.Development,
		Audit:       cfg.Audit,
	})

	svc := cfg.Services
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.Name, cfg.Version, cfg.Dependencies, cfg.Metrics),
		Users:          handlers.NewUsersHandler(svc.Auth, svc.Users),
		Tickets:        handlers.NewTicketsHandler(svc.Tickets),
		Inventory:      handlers.NewInventoryHandler(svc.Inventory),
		Knowledge:      handlers.NewKnowledgeHandler(svc.Knowledge),
		RMAs:           handlers.NewRmaHandler(svc.RMAs),
		Customers:      handlers.NewCustomersHandler(svc.Customers),
		Reports:        handlers.NewReportsHandler(svc.Reports),
		Audit:          handlers.NewAuditHandler(svc.Audit),
		AuthMiddleware: auth.NewAuthMiddleware(svc.Tokens, cfg.Store.Repositories().Users),
	})
	return app
}
