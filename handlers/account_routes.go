// handlers/account_routes.go
package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"game-session-engine/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
)

const dateLayout = "2006-01-02"

func SetupAccountRoutes(router fiber.Router, accounts *services.AccountService, ledger *services.LedgerService, projections *services.ProjectionService) {
	router.Get("/me", func(c *fiber.Ctx) error {
		id, err := caller(c)
		if err != nil {
			return err
		}
		acc, err := accounts.Get(c.UserContext(), id.AccountID)
		if err != nil {
			return writeError(c, err)
		}
		entries, err := ledger.Entries(c.UserContext(), id.AccountID, c.QueryInt("entries", 20))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"account": acc, "entries": entries})
	})

	// Accounts by score, ?order=asc for lowest first.
	router.Get("/ranking", func(c *fiber.Ctx) error {
		order := strings.ToLower(c.Query("order", "desc"))
		if order != "asc" && order != "desc" {
			return fiber.NewError(fiber.StatusBadRequest, "order must be asc or desc")
		}
		limit, _ := strconv.Atoi(c.Query("limit", "100"))

		ranking, err := projections.Ranking(c.UserContext(), order == "asc", limit)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(ranking)
	})

	// Closed games of the caller, optionally bounded by startDate/endDate (YYYY-MM-DD).
	router.Get("/games/history", func(c *fiber.Ctx) error {
		id, err := caller(c)
		if err != nil {
			return err
		}

		var filter services.HistoryFilter
		for _, p := range []struct {
			name string
			dst  **time.Time
		}{{"startDate", &filter.From}, {"endDate", &filter.To}} {
			raw := c.Query(p.name)
			if raw == "" {
				continue
			}
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", p.name))
			}
			*p.dst = &t
		}
		if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
			return fiber.NewError(fiber.StatusBadRequest, "endDate is before startDate")
		}

		history, err := projections.FinishedHistory(c.UserContext(), id.AccountID, filter)
		if err != nil {
			return writeError(c, err)
		}

		if c.QueryBool("download") {
			name := slug.Make("game history " + time.Now().UTC().Format(dateLayout))
			c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.json"`, name))
		}
		return c.JSON(history)
	})
}
