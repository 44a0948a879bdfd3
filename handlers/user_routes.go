// handlers/user_routes.go
package handlers

import (
	"learning-rewards-service/services"

	"github.com/gofiber/fiber/v2"
)

type syncRequest struct {
	WalletAddress string  `json:"wallet_address"`
	Email         *string `json:"email"`
	Name          *string `json:"name"`
}

func SetupUserRoutes(app *fiber.App, accounts *services.AccountService) {
	// Called by the auth layer after every successful wallet login.
	app.Post("/auth/sync", func(c *fiber.Ctx) error {
		var req syncRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}

		user, err := accounts.SyncAccount(c.UserContext(), req.WalletAddress, req.Email, req.Name)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "user": user})
	})

	app.Get("/user/:wallet", func(c *fiber.Ctx) error {
		user, err := accounts.ResolveAccount(c.UserContext(), c.Params("wallet"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"wallet_address":   user.WalletAddress,
			"current_exp":      user.CurrentExp,
			"total_exp_earned": user.TotalExpEarned,
		})
	})
}
