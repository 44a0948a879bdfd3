// handlers/flashcard_routes.go
package handlers

import (
	"learning-rewards-service/models"
	"learning-rewards-service/services"

	"github.com/gofiber/fiber/v2"
)

type reviewRequest struct {
	UserID      string `json:"user_id"`
	FlashcardID int64  `json:"flashcard_id"`
	Difficulty  string `json:"difficulty"`
}

func SetupFlashcardRoutes(app *fiber.App, flashcards *services.FlashcardService) {
	flashcard := app.Group("/flashcard")

	flashcard.Post("/review", func(c *fiber.Ctx) error {
		var req reviewRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}

		review, err := flashcards.RecordReview(c.UserContext(), req.UserID, req.FlashcardID, models.Difficulty(req.Difficulty))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "review": review})
	})

	flashcard.Get("/due", func(c *fiber.Ctx) error {
		due, err := flashcards.DueReviews(c.UserContext(), c.Query("user_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"due": due, "count": len(due)})
	})
}
