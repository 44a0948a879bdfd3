package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversionStatus string

const ConversionStatusConfirmed ConversionStatus = "confirmed"

// TokenConversion records an EXP → token conversion whose mint is confirmed on-chain.
type TokenConversion struct {
	ID        string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string           `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ExpAmount int64            `gorm:"not null" json:"exp_amount"`
	TxHash    string           `gorm:"type:varchar(80);not null;uniqueIndex" json:"tx_hash"`
	Status    ConversionStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt time.Time        `gorm:"not null" json:"created_at"`
}

func (t *TokenConversion) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
