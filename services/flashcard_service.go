// services/flashcard_service.go
package services

import (
	"context"
	"fmt"

	"learning-rewards-service/logger"
	"learning-rewards-service/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FlashcardService struct {
	DB        *gorm.DB
	Scheduler *ReviewScheduler
}

func NewFlashcardService(db *gorm.DB, scheduler *ReviewScheduler) *FlashcardService {
	return &FlashcardService{DB: db, Scheduler: scheduler}
}

// RecordReview stores the latest rating for a card and its next due time.
func (s *FlashcardService) RecordReview(ctx context.Context, wallet string, flashcardID int64, difficulty models.Difficulty) (*models.FlashcardReview, error) {
	if flashcardID <= 0 {
		return nil, &ValidationError{Field: "flashcard_id", Reason: "must be a positive integer"}
	}
	if _, err := ParseDifficulty(string(difficulty)); err != nil {
		return nil, err
	}

	user, err := findUser(ctx, s.DB, wallet)
	if err != nil {
		return nil, err
	}

	now := s.Scheduler.Clock.Now().UTC()
	review := models.FlashcardReview{
		UserID:         user.ID,
		FlashcardID:    flashcardID,
		Difficulty:     difficulty,
		LastReviewedAt: now,
		NextReviewAt:   NextReviewAt(now, difficulty),
	}

	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "flashcard_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"difficulty", "last_reviewed_at", "next_review_at"}),
	}).Create(&review).Error; err != nil {
		return nil, fmt.Errorf("failed to record review: %w", err)
	}

	logger.Debug("review recorded",
		zap.String("user_id", user.ID),
		zap.Int64("flashcard_id", flashcardID),
		zap.String("difficulty", string(difficulty)),
		zap.Time("next_review_at", review.NextReviewAt),
	)
	return &review, nil
}

// DueReviews lists cards whose next review time has passed, soonest first.
func (s *FlashcardService) DueReviews(ctx context.Context, wallet string) ([]models.FlashcardReview, error) {
	user, err := findUser(ctx, s.DB, wallet)
	if err != nil {
		return nil, err
	}

	var reviews []models.FlashcardReview
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND next_review_at <= ?", user.ID, s.Scheduler.Clock.Now().UTC()).
		Order("next_review_at ASC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch due reviews: %w", err)
	}
	return reviews, nil
}
