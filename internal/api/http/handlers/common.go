package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

const (
	resourceTypeKey = "audit_resource_type"
	resourceIDKey   = "audit_resource_id"
)

// TagResource marks the entity a request touched for the audit log.
func TagResource(c *fiber.Ctx, resourceType, resourceID string) {
	c.Locals(resourceTypeKey, resourceType)
	if resourceID != "" {
		c.Locals(resourceIDKey, resourceID)
	}
}

// ResourceFromContext returns the tags set by TagResource.
func ResourceFromContext(c *fiber.Ctx) (string, string) {
	resourceType, _ := c.Locals(resourceTypeKey).(string)
	resourceID, _ := c.Locals(resourceIDKey).(string)
	return resourceType, resourceID
}

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"body": err.Error()})
	}
	return nil
}

func parsePagination(c *fiber.Ctx) service.Pagination {
	limit := parseInt(c.Query("limit"), 0)
	offset := parseInt(c.Query("offset"), 0)
	if page := parseInt(c.Query("page"), 0); page > 0 {
		size := parseInt(c.Query("page_size"), 20)
		limit = size
		offset = (page - 1) * size
	}
	return service.Pagination{Limit: limit, Offset: offset}
}

func pageMeta[T any](page service.PageResult[T]) dto.PageMeta {
	return dto.PageMeta{Total: page.Total, Limit: page.Limit, Offset: page.Offset}
}

func parseTime(c *fiber.Ctx, key string) (*time.Time, error) {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		if d, derr := time.Parse("2006-01-02", val); derr == nil {
			return &d, nil
		}
		return nil, apperrors.NewValidationError("invalid time", map[string]any{key: "RFC3339 or YYYY-MM-DD expected"})
	}
	return &t, nil
}

func parseBool(c *fiber.Ctx, key string) *bool {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
