package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseStatus tracks a conversion whose on-chain and off-chain sides may disagree.
type CaseStatus string

const (
	// Mint was submitted but its receipt was not observed before the wait gave up.
	CaseStatusAwaitingConfirmation CaseStatus = "awaiting_confirmation"
	// Tokens are in the wallet but EXP was not debited. Needs an operator.
	CaseStatusNeedsOperator CaseStatus = "needs_operator"
	// The submitted mint reverted; nothing was minted and nothing was debited.
	CaseStatusMintFailed CaseStatus = "mint_failed"
	// A late confirmation was observed and the EXP debit applied.
	CaseStatusResolved CaseStatus = "resolved"
)

type ReconciliationCase struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID        string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ExpAmount     int64      `gorm:"not null" json:"exp_amount"`
	TxHash        string     `gorm:"type:varchar(80);not null;uniqueIndex" json:"tx_hash"`
	Status        CaseStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	Detail        string     `gorm:"type:text" json:"detail"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (r *ReconciliationCase) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
