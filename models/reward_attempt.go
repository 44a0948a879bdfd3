package models

import "time"

// RewardType is the kind of completion event that earns EXP.
type RewardType string

const (
	RewardTypeVideoComplete    RewardType = "video_complete"
	RewardTypeFlashcardSession RewardType = "flashcard_session"
)

// RewardAmounts is the only place reward kinds are defined.
var RewardAmounts = map[RewardType]int64{
	RewardTypeVideoComplete:    10,
	RewardTypeFlashcardSession: 15,
}

// RewardAttempt is written for every credit request, credited or not.
// Rows are never updated or deleted.
type RewardAttempt struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string     `gorm:"type:varchar(36);not null;index:idx_reward_attempts_lookup,priority:1" json:"user_id"`
	Type      RewardType `gorm:"type:varchar(32);not null;index:idx_reward_attempts_lookup,priority:2" json:"type"`
	SourceID  int64      `gorm:"not null;index:idx_reward_attempts_lookup,priority:3" json:"source_id"`
	Amount    int64      `gorm:"not null" json:"amount"`
	CreatedAt time.Time  `gorm:"not null;index:idx_reward_attempts_lookup,priority:4" json:"created_at"`
}
