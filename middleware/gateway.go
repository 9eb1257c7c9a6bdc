// middleware/gateway.go
package middleware

import (
	"strings"

	"game-session-engine/utils"

	"github.com/gofiber/fiber/v2"
)

// publicPaths skip gateway authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

// GatewayAuthMiddleware validates the Bearer token from the Gateway
func GatewayAuthMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		utils.Log.Fatal("❌ GAME_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}

	return func(c *fiber.Ctx) error {
		if publicPaths[c.Path()] {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			utils.Log.Debugf("🚫 [GATEWAY_AUTH] Missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
				"code":  "unauthorized",
			})
		}

		// raw tokens without the Bearer prefix are accepted as well
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if token != expectedToken {
			utils.Log.Warnf("❌ [GATEWAY_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
				"code":  "unauthorized",
			})
		}
		return c.Next()
	}
}
