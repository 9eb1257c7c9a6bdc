// handlers/errors.go
package handlers

import (
	"errors"

	"game-session-engine/metrics"
	"game-session-engine/services"
	"game-session-engine/utils"

	"github.com/gofiber/fiber/v2"
)

// Stable codes clients switch on.
const (
	CodeInsufficientCredit = "insufficient_credit"
	CodeIllegalMove        = "illegal_move"
	CodeSessionNotActive   = "session_not_active"
	CodeNotFound           = "not_found"
	CodeForbidden          = "forbidden"
	CodeBadRequest         = "bad_request"
	CodeCorruptState       = "corrupt_state"
	CodeInternal           = "internal_error"
)

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInsufficientCredit):
		return fiber.StatusPaymentRequired, CodeInsufficientCredit
	case errors.Is(err, services.ErrIllegalMove):
		return fiber.StatusUnprocessableEntity, CodeIllegalMove
	case errors.Is(err, services.ErrSessionNotActive):
		return fiber.StatusConflict, CodeSessionNotActive
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, CodeNotFound
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, CodeForbidden
	case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrInvalidDifficulty):
		return fiber.StatusBadRequest, CodeBadRequest
	case errors.Is(err, services.ErrCorruptState):
		return fiber.StatusInternalServerError, CodeCorruptState
	}
	return fiber.StatusInternalServerError, CodeInternal
}

// writeError maps a core failure to its status and code.
func writeError(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	metrics.Failure(code)

	msg := err.Error()
	if code == CodeInternal {
		utils.Log.WithError(err).Errorf("💥 %s %s failed", c.Method(), c.Path())
		msg = "internal error"
	} else if code == CodeCorruptState {
		utils.Log.WithError(err).Errorf("💥 corrupt session state on %s", c.Path())
	}
	return c.Status(status).JSON(fiber.Map{"error": msg, "code": code})
}

// fiberErrorHandler covers errors returned from handlers and fiber itself (404 routes, body limits).
func fiberErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeBadRequest
		switch fe.Code {
		case fiber.StatusUnauthorized:
			code = "unauthorized"
		case fiber.StatusNotFound:
			code = CodeNotFound
		case fiber.StatusMethodNotAllowed:
			code = "method_not_allowed"
		case fiber.StatusRequestEntityTooLarge:
			code = "payload_too_large"
		}
		metrics.Failure(code)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "code": code})
	}
	return writeError(c, err)
}
