// handlers/requests.go
package handlers

import (
	"strings"

	"game-session-engine/middleware"
	"game-session-engine/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type StartSessionRequest struct {
	Difficulty string `json:"difficulty" validate:"required,oneof=easy medium hard"`
}

type MoveRequest struct {
	From      string `json:"from" validate:"required,len=2"`
	To        string `json:"to" validate:"required,len=2"`
	Promotion string `json:"promotion,omitempty" validate:"omitempty,oneof=q r b n Q R B N"`
}

type RechargeRequest struct {
	Email  string          `json:"email" validate:"required,email"`
	Amount decimal.Decimal `json:"amount"`
}

type ProvisionRequest struct {
	Email   string          `json:"email" validate:"required,email"`
	Credits decimal.Decimal `json:"credits"`
	Role    string          `json:"role" validate:"omitempty,oneof=player admin"`
}

// bind parses the JSON body into req and runs its validate tags. Failures come back
// as 400 fiber errors.
func bind(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
			}
			return fiber.NewError(fiber.StatusBadRequest, "validation failed: "+strings.Join(fields, ", "))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// caller returns the request identity, or a 401 error when none was attached.
func caller(c *fiber.Ctx) (services.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return services.Identity{}, fiber.NewError(fiber.StatusUnauthorized, "missing identity")
	}
	return id, nil
}
