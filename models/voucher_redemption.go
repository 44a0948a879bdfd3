package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RedemptionStatus string

const RedemptionStatusConfirmed RedemptionStatus = "confirmed"

// VoucherRedemption mirrors an NFT voucher mint the client already settled on-chain.
// It is for display only; the chain decides who owns the NFT.
type VoucherRedemption struct {
	ID         string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string           `gorm:"type:varchar(36);not null;index" json:"user_id"`
	VoucherID  int64            `gorm:"not null" json:"voucher_id"`
	NFTTokenID int64            `gorm:"not null" json:"nft_token_id"`
	TxHash     string           `gorm:"type:varchar(80);not null;uniqueIndex" json:"tx_hash"`
	Status     RedemptionStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt  time.Time        `gorm:"not null" json:"created_at"`

	Voucher *Voucher `gorm:"foreignKey:VoucherID" json:"voucher,omitempty"`
}

func (r *VoucherRedemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
