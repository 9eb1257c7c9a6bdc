// handlers/app.go
package handlers

import (
	"strings"

	"game-session-engine/metrics"
	"game-session-engine/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Deps is everything the HTTP edge needs.
type Deps struct {
	Sessions    *services.SessionService
	Accounts    *services.AccountService
	Ledger      *services.LedgerService
	Projections *services.ProjectionService

	// Auth attaches the caller identity (gateway headers or JWT).
	Auth []fiber.Handler
	// Metered guards the routes that charge credits.
	Metered fiber.Handler

	AllowedOrigins []string
}

func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    64 * 1024,
		ErrorHandler: fiberErrorHandler,
	})

	app.Use(recover.New())
	app.Use(metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(d.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders: "Content-Length, Content-Type, Content-Disposition, X-Request-ID",
		MaxAge:        86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	for _, h := range d.Auth {
		app.Use(h)
	}
	app.Get("/metrics", metrics.FiberHandler())

	metered := d.Metered
	if metered == nil {
		metered = func(c *fiber.Ctx) error { return c.Next() }
	}

	// /games/history must be registered ahead of /games/:id
	SetupAccountRoutes(app, d.Accounts, d.Ledger, d.Projections)
	SetupSessionRoutes(app, d.Sessions, metered)
	SetupAdminRoutes(app, d.Accounts, d.Ledger)
	return app
}
