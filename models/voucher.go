package models

import "time"

// Voucher is a partner discount sold as an ERC-1155 token in the marketplace.
// Rows are managed by operators; the service only reads them.
type Voucher struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(120);not null" json:"name"`
	Discount    string    `gorm:"type:varchar(64);not null" json:"discount"`
	PartnerName string    `gorm:"type:varchar(120);not null" json:"partner_name"`
	Location    *string   `json:"location"`
	Terms       *string   `json:"terms"`
	CostInRindo int64     `gorm:"not null;check:chk_vouchers_cost,cost_in_rindo > 0" json:"cost_in_rindo"`
	NFTTokenID  int64     `gorm:"not null;uniqueIndex" json:"nft_token_id"`
	MetadataURI *string   `json:"metadata_uri"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
