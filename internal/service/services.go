package service

import (
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
)

// Services is every application service bound to one store.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Tickets       *TicketService
	Inventory     *InventoryService
	Knowledge     *KnowledgeService
	RMAs          *RmaService
	Customers     *CustomerService
	Reports       *ReportService
	Audit         *AuditService
	Notifications *NotificationService
	Tokens        *auth.TokenManager
}

// NewServices wires the service layer. cache may be nil.
func NewServices(cfg config.Config, store repository.Store, dispatcher events.Dispatcher, cache ReportCache, logger *zap.Logger) *Services {
	logger = nopLogger(logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	return &Services{
		Auth:  NewAuthService(store, tokens, cfg.Auth.BcryptCost, logger),
		Users: NewUserService(store, cfg.Auth.BcryptCost, logger),
		Tickets: NewTicketService(TicketDependencies{
			Store:       store,
			Codes:       NewCodeGenerator(cfg.Sequence.TicketPrefix, cfg.Sequence.TicketWidth),
			MaxAttempts: cfg.Sequence.MaxAttempts,
			Dispatcher:  dispatcher,
			Logger:      logger,
		}),
		Inventory: NewInventoryService(store, dispatcher, logger),
		Knowledge: NewKnowledgeService(store, dispatcher, logger),
		RMAs: NewRmaService(store,
			NewCodeGenerator(cfg.Sequence.RmaPrefix, cfg.Sequence.RmaWidth),
			cfg.Sequence.MaxAttempts, dispatcher, logger),
		Customers:     NewCustomerService(store),
		Reports:       NewReportService(store, cache, cfg.Reports.CacheTTL(), logger),
		Audit:         NewAuditService(store),
		Notifications: NewNotificationService(dispatcher, logger, cfg.Events),
		Tokens:        tokens,
	}
}
