package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
)

// AuditSink accepts finished request records. Implementations must not block.
type AuditSink interface {
	Enqueue(entry domain.AuditLog)
}

var unauditedPrefixes = []string{"/health", "/metrics"}

func auditMiddleware(sink AuditSink) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, prefix := range unauditedPrefixes {
			if strings.HasPrefix(c.Path(), prefix) {
				return c.Next()
			}
		}

		start := time.Now()
		err := c.Next()

		// The sink outlives the request, so nothing may alias fasthttp buffers.
		method := utils.CopyString(c.Method())
		path := utils.CopyString(c.Path())
		entry := domain.AuditLog{
			RequestID:  utils.CopyString(c.GetRespHeader(fiber.HeaderXRequestID)),
			Method:     method,
			Path:       path,
			RouteKey:   method + " " + path,
			Status:     c.Response().StatusCode(),
			DurationMs: time.Since(start).Milliseconds(),
			IP:         utils.CopyString(c.IP()),
			UserAgent:  string(c.Request().Header.UserAgent()),
			CreatedAt:  start.UTC(),
		}
		if r := c.Route(); r != nil && r.Path != "" {
			entry.RouteKey = method + " " + r.Path
		}
		if user, ok := auth.UserFromContext(c); ok {
			id := user.ID
			entry.ActorID = &id
		}
		resourceType, resourceID := handlers.ResourceFromContext(c)
		entry.ResourceType = utils.CopyString(resourceType)
		entry.ResourceID = utils.CopyString(resourceID)

		sink.Enqueue(entry)
		return err
	}
}
