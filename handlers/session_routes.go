// handlers/session_routes.go
package handlers

import (
	"game-session-engine/models"
	"game-session-engine/rules"
	"game-session-engine/services"

	"github.com/gofiber/fiber/v2"
)

// SetupSessionRoutes mounts the game lifecycle. metered wraps the routes that charge credits.
func SetupSessionRoutes(router fiber.Router, sessions *services.SessionService, metered fiber.Handler) {
	games := router.Group("/games")

	games.Post("/", metered, func(c *fiber.Ctx) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		var req StartSessionRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		view, err := sessions.StartSession(c.UserContext(), id, models.Difficulty(req.Difficulty))
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	})

	games.Get("/:id", func(c *fiber.Ctx) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		session, err := sessions.GetSession(c.UserContext(), id, c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(session)
	})

	games.Post("/:id/moves", metered, func(c *fiber.Ctx) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		var req MoveRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		view, err := sessions.ExecuteMove(c.UserContext(), id, c.Params("id"), rules.Ply{
			From:      req.From,
			To:        req.To,
			Promotion: req.Promotion,
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(view)
	})

	games.Get("/:id/history", func(c *fiber.Ctx) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		moves, err := sessions.GetMoveHistory(c.UserContext(), id, c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"session_id": c.Params("id"), "moves": moves})
	})

	games.Get("/:id/status", func(c *fiber.Ctx) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		view, err := sessions.EvaluateStatus(c.UserContext(), id, c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{
			"status":         view.Session.Status,
			"side_to_move":   view.SideToMove,
			"in_check":       view.InCheck,
			"is_checkmate":   view.IsCheckmate,
			"points_awarded": view.PointsAwarded,
			"message":        view.Message,
		})
	})

	games.Post("/:id/abandon", func(c *fiber.Ctx) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		view, err := sessions.Abandon(c.UserContext(), id, c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(view)
	})
}
