package models

import "time"

// FlashcardSessionCredit holds the last credited flashcard session per lesson.
// It is written under the account row lock, so a credit committed by one
// request is visible to the next one regardless of attempt insert order.
type FlashcardSessionCredit struct {
	UserID     string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	LessonID   int64     `gorm:"primaryKey;autoIncrement:false" json:"lesson_id"`
	CreditedAt time.Time `gorm:"not null" json:"credited_at"`
}
