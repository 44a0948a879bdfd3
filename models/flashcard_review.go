package models

import "time"

// Difficulty is the learner's rating of a flashcard review.
type Difficulty string

const (
	DifficultyRepeat Difficulty = "repeat"
	DifficultyHard   Difficulty = "hard"
	DifficultyGood   Difficulty = "good"
	DifficultyEasy   Difficulty = "easy"
)

// FlashcardReview holds the latest schedule for one card; it is upserted on every review.
type FlashcardReview struct {
	UserID         string     `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	FlashcardID    int64      `gorm:"primaryKey;autoIncrement:false" json:"flashcard_id"`
	Difficulty     Difficulty `gorm:"type:varchar(16);not null" json:"difficulty"`
	LastReviewedAt time.Time  `gorm:"not null" json:"last_reviewed_at"`
	NextReviewAt   time.Time  `gorm:"not null;index" json:"next_review_at"`
}
