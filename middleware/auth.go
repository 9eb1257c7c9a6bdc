// middleware/auth.go
package middleware

import (
	"strings"

	"game-session-engine/models"
	"game-session-engine/services"
	"game-session-engine/utils"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// UserContextMiddleware turns the identity headers set by the Gateway into a
// services.Identity on the request.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if publicPaths[c.Path()] {
			return c.Next()
		}
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			utils.Log.Debugf("❌ [USER_CTX] X-User-ID missing on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
				"code":  "unauthorized",
			})
		}

		role := models.RolePlayer
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if strings.EqualFold(strings.TrimSpace(r), string(models.RoleAdmin)) {
				role = models.RoleAdmin
			}
		}

		c.Locals(identityKey, services.Identity{AccountID: userID, Role: role})
		return c.Next()
	}
}

// IdentityFrom returns the identity attached by UserContextMiddleware or JWTMiddleware.
func IdentityFrom(c *fiber.Ctx) (services.Identity, bool) {
	id, ok := c.Locals(identityKey).(services.Identity)
	return id, ok && id.AccountID != ""
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing identity", "code": "unauthorized"})
		}
		if !id.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required", "code": "forbidden"})
		}
		return c.Next()
	}
}
