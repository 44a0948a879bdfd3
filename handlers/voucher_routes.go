// handlers/voucher_routes.go
package handlers

import (
	"learning-rewards-service/services"

	"github.com/gofiber/fiber/v2"
)

type redeemRequest struct {
	UserID     string `json:"user_id"`
	VoucherID  int64  `json:"voucher_id"`
	NFTTokenID int64  `json:"nft_token_id"`
	TxHash     string `json:"tx_hash"`
}

func SetupVoucherRoutes(app *fiber.App, redemptions *services.RedemptionService) {
	app.Get("/vouchers", func(c *fiber.Ctx) error {
		list, err := redemptions.ListVouchers(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"vouchers": list})
	})

	voucher := app.Group("/voucher")

	// The client has already approved and minted the voucher; this only mirrors it.
	voucher.Post("/redeem", func(c *fiber.Ctx) error {
		var req redeemRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}

		redemption, err := redemptions.RecordRedemption(c.UserContext(), req.UserID, req.VoucherID, req.NFTTokenID, req.TxHash)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "redemption": redemption})
	})

	voucher.Get("/redemptions", func(c *fiber.Ctx) error {
		list, err := redemptions.ListRedemptions(c.UserContext(), c.Query("user_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"redemptions": list})
	})
}
