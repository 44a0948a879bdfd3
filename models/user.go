package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the EXP account of a learner, keyed by their lower-cased wallet address.
// Created by the auth sync on first login; never deleted.
type User struct {
	ID             string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	WalletAddress  string  `gorm:"type:varchar(64);uniqueIndex;not null" json:"wallet_address"`
	Email          *string `json:"email,omitempty"`
	Name           *string `json:"name,omitempty"`
	CurrentExp     int64   `gorm:"not null;default:0;check:chk_users_current_exp,current_exp >= 0" json:"current_exp"`
	TotalExpEarned int64   `gorm:"not null;default:0" json:"total_exp_earned"`

	// Set while a conversion for this account is between claim and debit.
	ConversionPendingAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.WalletAddress = NormalizeWallet(u.WalletAddress)
	return nil
}

// NormalizeWallet lower-cases and trims a wallet address for lookups.
func NormalizeWallet(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// NormalizeTxHash lower-cases and trims a transaction hash so client retries
// in either hex case land on the same row.
func NormalizeTxHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}
