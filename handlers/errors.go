// handlers/errors.go
package handlers

import (
	"errors"

	"learning-rewards-service/logger"
	"learning-rewards-service/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps service errors onto status codes and bodies.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validation   *services.ValidationError
		insufficient *services.InsufficientBalanceError
		chainErr     *services.ChainError
		pending      *services.MintPendingError
		postMint     *services.PostMintReconciliationError
		loggingErr   *services.LoggingFailedError
	)

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "validation failed",
			"details": fiber.Map{
				"field":  validation.Field,
				"reason": validation.Reason,
			},
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":     "insufficient EXP balance",
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, services.ErrConversionInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &pending):
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":  "pending",
			"tx_hash": pending.TxHash,
			"message": "mint submitted; balance will update once it confirms",
		})
	case errors.As(err, &postMint):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":                   "tokens minted but EXP balance update failed",
			"tx_hash":                 postMint.TxHash,
			"reconciliation_required": true,
		})
	case errors.As(err, &chainErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "blockchain transaction failed",
			"details": chainErr.Reason,
		})
	case errors.As(err, &loggingErr):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":      "failed to log redemption",
			"tx_hash":    loggingErr.TxHash,
			"nft_minted": true,
		})
	}

	logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid request body",
		"cause": err.Error(),
	})
}
