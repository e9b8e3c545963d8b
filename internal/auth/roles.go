package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// RequireRole ensures the caller holds one of the allowed roles. With no
// roles given any authenticated user passes.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[user.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// Staff is every role that works the repair desk.
var Staff = []domain.Role{domain.RoleTechnician, domain.RoleAdmin, domain.RoleSysAdmin}

// Managers may administer accounts and inventory.
var Managers = []domain.Role{domain.RoleAdmin, domain.RoleSysAdmin}

// SysAdmins may read the audit trail.
var SysAdmins = []domain.Role{domain.RoleSysAdmin}
