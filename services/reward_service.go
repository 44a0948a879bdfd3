// services/reward_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"learning-rewards-service/logger"
	"learning-rewards-service/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFlashcardWindow is how long a flashcard session credit blocks a replay of the same lesson.
const DefaultFlashcardWindow = 5 * time.Minute

// RewardService is the EXP ledger for completion events.
type RewardService struct {
	DB              *gorm.DB
	Clock           clockwork.Clock
	FlashcardWindow time.Duration
}

func NewRewardService(db *gorm.DB, clock clockwork.Clock, flashcardWindow time.Duration) *RewardService {
	if flashcardWindow <= 0 {
		flashcardWindow = DefaultFlashcardWindow
	}
	return &RewardService{DB: db, Clock: clock, FlashcardWindow: flashcardWindow}
}

type RewardResult struct {
	Credited    bool   `json:"credited"`
	Amount      int64  `json:"amount"`
	NewBalance  int64  `json:"new_balance"`
	TotalEarned int64  `json:"total_earned"`
	Message     string `json:"message"`
}

// CreditReward awards EXP for a completion event at most once per video, and at
// most once per lesson within the flashcard window. Repeats are successful no-ops.
func (s *RewardService) CreditReward(ctx context.Context, wallet string, rewardType models.RewardType, sourceID int64) (*RewardResult, error) {
	amount, ok := models.RewardAmounts[rewardType]
	if !ok {
		return nil, &ValidationError{Field: "type", Reason: "must be 'video_complete' or 'flashcard_session'"}
	}
	if sourceID <= 0 {
		return nil, &ValidationError{Field: "source_id", Reason: "must be a positive integer"}
	}

	user, err := findUser(ctx, s.DB, wallet)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()

	// Every attempt is logged before the duplicate check, credited or not.
	attempt := models.RewardAttempt{
		UserID:    user.ID,
		Type:      rewardType,
		SourceID:  sourceID,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := s.DB.WithContext(ctx).Create(&attempt).Error; err != nil {
		logger.Error("failed to log reward attempt",
			zap.String("user_id", user.ID),
			zap.String("type", string(rewardType)),
			zap.Int64("source_id", sourceID),
			zap.Error(err),
		)
	}

	var result *RewardResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock serializes credits for one account; other accounts proceed.
		var locked models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", user.ID).First(&locked).Error; err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		duplicate, err := s.isDuplicate(tx, locked.ID, rewardType, sourceID, attempt.ID, now)
		if err != nil {
			return err
		}
		if duplicate {
			result = &RewardResult{
				Credited:    false,
				NewBalance:  locked.CurrentExp,
				TotalEarned: locked.TotalExpEarned,
				Message:     "Already earned for this source",
			}
			return nil
		}

		if err := tx.Model(&models.User{}).Where("id = ?", locked.ID).Updates(map[string]any{
			"current_exp":      gorm.Expr("current_exp + ?", amount),
			"total_exp_earned": gorm.Expr("total_exp_earned + ?", amount),
		}).Error; err != nil {
			return fmt.Errorf("failed to update user EXP: %w", err)
		}

		if rewardType == models.RewardTypeVideoComplete {
			progress := models.VideoProgress{UserID: locked.ID, VideoID: sourceID, CompletedAt: now}
			// Savepoint: losing the progress row must not undo the credit.
			if err := tx.Transaction(func(sp *gorm.DB) error {
				return sp.Create(&progress).Error
			}); err != nil {
				logger.Warn("EXP credited but video progress not recorded",
					zap.String("user_id", locked.ID),
					zap.Int64("video_id", sourceID),
					zap.Error(err),
				)
			}
		}
		if rewardType == models.RewardTypeFlashcardSession {
			credit := models.FlashcardSessionCredit{UserID: locked.ID, LessonID: sourceID, CreditedAt: now}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"credited_at"}),
			}).Create(&credit).Error; err != nil {
				return fmt.Errorf("failed to record flashcard credit: %w", err)
			}
		}

		result = &RewardResult{
			Credited:    true,
			Amount:      amount,
			NewBalance:  locked.CurrentExp + amount,
			TotalEarned: locked.TotalExpEarned + amount,
			Message:     fmt.Sprintf("+%d EXP awarded", amount),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Credited {
		logger.Info("EXP awarded",
			zap.String("wallet", user.WalletAddress),
			zap.String("type", string(rewardType)),
			zap.Int64("source_id", sourceID),
			zap.Int64("amount", amount),
			zap.Int64("new_balance", result.NewBalance),
		)
	} else {
		logger.Info("duplicate award attempt",
			zap.String("wallet", user.WalletAddress),
			zap.String("type", string(rewardType)),
			zap.Int64("source_id", sourceID),
		)
	}
	return result, nil
}

// isDuplicate must run inside the locked transaction. A flashcard session is a
// duplicate when an earlier attempt or a credit for the lesson falls inside the window.
func (s *RewardService) isDuplicate(tx *gorm.DB, userID string, rewardType models.RewardType, sourceID int64, attemptID uint64, now time.Time) (bool, error) {
	var count int64
	switch rewardType {
	case models.RewardTypeVideoComplete:
		if err := tx.Model(&models.VideoProgress{}).
			Where("user_id = ? AND video_id = ?", userID, sourceID).
			Count(&count).Error; err != nil {
			return false, fmt.Errorf("failed to check video progress: %w", err)
		}
	case models.RewardTypeFlashcardSession:
		query := tx.Model(&models.RewardAttempt{}).
			Where("user_id = ? AND type = ? AND source_id = ?", userID, rewardType, sourceID).
			Where("created_at > ?", now.Add(-s.FlashcardWindow))
		if attemptID != 0 {
			query = query.Where("id < ?", attemptID)
		}
		if err := query.Count(&count).Error; err != nil {
			return false, fmt.Errorf("failed to check flashcard attempts: %w", err)
		}
		if count > 0 {
			return true, nil
		}
		// Attempt ids follow insert order, not commit order; the credit row
		// catches a concurrent credit whose attempt got a higher id.
		if err := tx.Model(&models.FlashcardSessionCredit{}).
			Where("user_id = ? AND lesson_id = ? AND credited_at > ?", userID, sourceID, now.Add(-s.FlashcardWindow)).
			Count(&count).Error; err != nil {
			return false, fmt.Errorf("failed to check flashcard credits: %w", err)
		}
	}
	return count > 0, nil
}
