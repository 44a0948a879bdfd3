// handlers/exp_routes.go
package handlers

import (
	"learning-rewards-service/models"
	"learning-rewards-service/services"

	"github.com/gofiber/fiber/v2"
)

type addExpRequest struct {
	UserID   string `json:"user_id"`
	Type     string `json:"type"`
	SourceID int64  `json:"source_id"`
}

type convertRequest struct {
	UserID    string `json:"user_id"`
	ExpAmount int64  `json:"exp_amount"`
}

func SetupExpRoutes(app *fiber.App, rewards *services.RewardService, conversions *services.ConversionService) {
	exp := app.Group("/exp")

	exp.Post("/add", func(c *fiber.Ctx) error {
		var req addExpRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}

		result, err := rewards.CreditReward(c.UserContext(), req.UserID, models.RewardType(req.Type), req.SourceID)
		if err != nil {
			return respondError(c, err)
		}
		// A duplicate is still a success; "credited" tells the two apart.
		return c.JSON(fiber.Map{
			"success":      true,
			"credited":     result.Credited,
			"amount":       result.Amount,
			"new_balance":  result.NewBalance,
			"total_earned": result.TotalEarned,
			"message":      result.Message,
		})
	})

	exp.Post("/convert", func(c *fiber.Ctx) error {
		var req convertRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}

		result, err := conversions.Convert(c.UserContext(), req.UserID, req.ExpAmount)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":      true,
			"tx_hash":      result.TxHash,
			"exp_amount":   result.ExpAmount,
			"new_balance":  result.NewBalance,
			"explorer_url": result.ExplorerURL,
		})
	})

	exp.Get("/conversions", func(c *fiber.Ctx) error {
		list, err := conversions.ListConversions(c.UserContext(), c.Query("user_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"conversions": list})
	})

	app.Get("/reconciliation/cases", func(c *fiber.Ctx) error {
		status := models.CaseStatus(c.Query("status", string(models.CaseStatusNeedsOperator)))
		cases, err := conversions.ListCases(c.UserContext(), status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"status": status, "cases": cases})
	})
}
