// middleware/jwt.go
package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"game-session-engine/models"
	"game-session-engine/services"
	"game-session-engine/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by player tokens.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for acc, valid for ttl.
func IssueToken(secret string, acc *models.Account, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:    acc.ID,
		Email: acc.Email,
		Role:  string(acc.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("token has no id claim")
	}
	return claims, nil
}

// JWTMiddleware verifies a Bearer JWT and attaches its identity.
func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if publicPaths[c.Path()] {
			return c.Next()
		}
		authHeader := c.Get("Authorization")
		raw := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || raw == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "bearer token missing",
				"code":  "unauthorized",
			})
		}

		claims, err := parseToken(secret, raw)
		if err != nil {
			utils.Log.Debugf("❌ [JWT] rejected token on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": fmt.Sprintf("invalid token: %v", err),
				"code":  "unauthorized",
			})
		}

		role := models.RolePlayer
		if claims.Role == string(models.RoleAdmin) {
			role = models.RoleAdmin
		}
		c.Locals(identityKey, services.Identity{AccountID: claims.ID, Role: role})
		return c.Next()
	}
}
