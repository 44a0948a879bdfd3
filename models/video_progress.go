package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VideoProgress marks a video as permanently completed by a user.
// Its presence is what blocks a second video_complete credit.
type VideoProgress struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_video_progress_user_video" json:"user_id"`
	VideoID     int64     `gorm:"not null;uniqueIndex:idx_video_progress_user_video" json:"video_id"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
}

func (v *VideoProgress) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
