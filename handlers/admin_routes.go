// handlers/admin_routes.go
package handlers

import (
	"game-session-engine/middleware"
	"game-session-engine/models"
	"game-session-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(router fiber.Router, accounts *services.AccountService, ledger *services.LedgerService) {
	admin := router.Group("/admin", middleware.RequireAdmin())

	admin.Post("/recharge", func(c *fiber.Ctx) error {
		var req RechargeRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		acc, err := ledger.RechargeByEmail(c.UserContext(), req.Email, req.Amount)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "recharge completed",
			"account": acc,
		})
	})

	admin.Post("/accounts", func(c *fiber.Ctx) error {
		var req ProvisionRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if req.Credits.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "credits must be >= 0")
		}
		acc, created, err := accounts.Provision(c.UserContext(), req.Email, req.Credits, models.Role(req.Role))
		if err != nil {
			return writeError(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(acc)
	})
}
