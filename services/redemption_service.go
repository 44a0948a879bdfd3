// services/redemption_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"learning-rewards-service/logger"
	"learning-rewards-service/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedemptionService mirrors voucher NFT mints that the client already
// settled on-chain (approve, then mint). It never touches the chain itself.
type RedemptionService struct {
	DB      *gorm.DB
	Clock   clockwork.Clock
	Archive AuditArchiver
}

func NewRedemptionService(db *gorm.DB, clock clockwork.Clock) *RedemptionService {
	return &RedemptionService{DB: db, Clock: clock}
}

func (s *RedemptionService) RecordRedemption(ctx context.Context, wallet string, voucherID, nftTokenID int64, txHash string) (*models.VoucherRedemption, error) {
	txHash = models.NormalizeTxHash(txHash)
	switch {
	case voucherID <= 0:
		return nil, &ValidationError{Field: "voucher_id", Reason: "must be a positive integer"}
	case nftTokenID <= 0:
		return nil, &ValidationError{Field: "nft_token_id", Reason: "must be a positive integer"}
	case txHash == "":
		return nil, &ValidationError{Field: "tx_hash", Reason: "transaction hash required"}
	}

	user, err := findUser(ctx, s.DB, wallet)
	if err != nil {
		return nil, err
	}

	// Inactive vouchers still match: the mint may predate the delisting.
	var voucher models.Voucher
	if err := s.DB.WithContext(ctx).Where("id = ?", voucherID).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Field: "voucher_id", Reason: "unknown voucher"}
		}
		return nil, &LoggingFailedError{TxHash: txHash, Err: err}
	}
	if voucher.NFTTokenID != nftTokenID {
		return nil, &ValidationError{Field: "nft_token_id", Reason: "does not match the voucher's token"}
	}

	redemption := models.VoucherRedemption{
		UserID:     user.ID,
		VoucherID:  voucherID,
		NFTTokenID: nftTokenID,
		TxHash:     txHash,
		Status:     models.RedemptionStatusConfirmed,
		CreatedAt:  s.Clock.Now().UTC(),
	}

	// Client retries with the same hash are absorbed by the unique tx_hash.
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		DoNothing: true,
	}).Create(&redemption)
	if res.Error != nil {
		logger.Error("failed to log redemption",
			zap.String("wallet", user.WalletAddress),
			zap.Int64("voucher_id", voucherID),
			zap.Int64("nft_token_id", nftTokenID),
			zap.String("tx_hash", txHash),
			zap.Error(res.Error),
		)
		return nil, &LoggingFailedError{TxHash: txHash, Err: res.Error}
	}

	if res.RowsAffected == 0 {
		var existing models.VoucherRedemption
		if err := s.DB.WithContext(ctx).Preload("Voucher").Where("tx_hash = ?", txHash).First(&existing).Error; err != nil {
			return nil, &LoggingFailedError{TxHash: txHash, Err: err}
		}
		if existing.UserID != user.ID {
			return nil, &ValidationError{Field: "tx_hash", Reason: "already recorded for another account"}
		}
		logger.Debug("redemption already recorded", zap.String("tx_hash", txHash))
		return &existing, nil
	}

	redemption.Voucher = &voucher

	if s.Archive != nil {
		if err := s.Archive.Archive(ctx, "redemptions", redemption.ID, redemption); err != nil {
			logger.Warn("failed to archive redemption", zap.String("tx_hash", txHash), zap.Error(err))
		}
	}

	logger.Info("redemption logged",
		zap.String("wallet", user.WalletAddress),
		zap.Int64("voucher_id", voucherID),
		zap.Int64("nft_token_id", nftTokenID),
		zap.String("tx_hash", txHash),
	)
	return &redemption, nil
}

// ListRedemptions returns the account's mirrored vouchers with their catalog
// details, newest first.
func (s *RedemptionService) ListRedemptions(ctx context.Context, wallet string) ([]models.VoucherRedemption, error) {
	user, err := findUser(ctx, s.DB, wallet)
	if err != nil {
		return nil, err
	}
	var redemptions []models.VoucherRedemption
	if err := s.DB.WithContext(ctx).
		Preload("Voucher").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&redemptions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch redemptions: %w", err)
	}
	return redemptions, nil
}

// ListVouchers returns the marketplace catalog: active vouchers, cheapest first.
func (s *RedemptionService) ListVouchers(ctx context.Context) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("cost_in_rindo ASC").
		Order("id ASC").
		Find(&vouchers).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch vouchers: %w", err)
	}
	return vouchers, nil
}
