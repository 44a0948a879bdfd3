// services/conversion_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"learning-rewards-service/chain"
	"learning-rewards-service/logger"
	"learning-rewards-service/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultConversionClaimTTL bounds how long a crashed conversion can block the account.
const DefaultConversionClaimTTL = 10 * time.Minute

var errBalanceChanged = errors.New("balance no longer covers the conversion")

// AuditArchiver copies final records to long-term storage. Optional.
type AuditArchiver interface {
	Archive(ctx context.Context, kind, id string, record any) error
}

// ConversionService turns EXP into on-chain tokens. The mint is the commit
// point: EXP is debited only after the chain confirms it.
type ConversionService struct {
	DB       *gorm.DB
	Gateway  chain.Gateway
	Clock    clockwork.Clock
	ClaimTTL time.Duration
	Archive  AuditArchiver

	// Accounts with a Convert call in this process. The database claim
	// covers other instances; this one never expires while a mint blocks.
	inflight sync.Map
}

func NewConversionService(db *gorm.DB, gateway chain.Gateway, clock clockwork.Clock, claimTTL time.Duration) *ConversionService {
	if claimTTL <= 0 {
		claimTTL = DefaultConversionClaimTTL
	}
	return &ConversionService{DB: db, Gateway: gateway, Clock: clock, ClaimTTL: claimTTL}
}

type ConversionResult struct {
	TxHash      string `json:"tx_hash"`
	ExpAmount   int64  `json:"exp_amount"`
	NewBalance  int64  `json:"new_balance"`
	ExplorerURL string `json:"explorer_url"`
}

// Convert validates, mints, debits and logs, in that order.
func (s *ConversionService) Convert(ctx context.Context, wallet string, expAmount int64) (*ConversionResult, error) {
	if expAmount <= 0 {
		return nil, &ValidationError{Field: "exp_amount", Reason: "must be a positive integer"}
	}

	user, err := findUser(ctx, s.DB, wallet)
	if err != nil {
		return nil, err
	}
	if user.CurrentExp < expAmount {
		return nil, &InsufficientBalanceError{Available: user.CurrentExp, Requested: expAmount}
	}

	if _, busy := s.inflight.LoadOrStore(user.ID, struct{}{}); busy {
		return nil, ErrConversionInProgress
	}
	defer s.inflight.Delete(user.ID)

	if err := s.claim(ctx, user, expAmount); err != nil {
		return nil, err
	}

	logger.Info("minting tokens from EXP",
		zap.String("wallet", user.WalletAddress),
		zap.Int64("exp_amount", expAmount),
	)
	receipt, err := s.Gateway.MintTokens(ctx, user.WalletAddress, expAmount)
	if err != nil {
		receipt, err = s.resolveMintFailure(ctx, user, expAmount, err)
		if err != nil {
			return nil, err
		}
	}

	// From here on the tokens exist; nothing below may report the mint as failed.
	ctx = context.WithoutCancel(ctx)

	newBalance, err := s.debit(ctx, user.ID, expAmount)
	if err != nil {
		logger.Error("tokens minted but failed to update EXP balance",
			zap.String("wallet", user.WalletAddress),
			zap.String("tx_hash", receipt.TxHash),
			zap.Int64("exp_amount", expAmount),
			zap.Error(err),
		)
		s.openCase(ctx, user.ID, expAmount, receipt.TxHash, models.CaseStatusNeedsOperator, err.Error())
		return nil, &PostMintReconciliationError{TxHash: receipt.TxHash, Err: err}
	}

	s.logConversion(ctx, user, expAmount, receipt.TxHash)

	logger.Info("EXP conversion successful",
		zap.String("wallet", user.WalletAddress),
		zap.Int64("exp_amount", expAmount),
		zap.String("tx_hash", receipt.TxHash),
		zap.Int64("new_balance", newBalance),
	)
	return &ConversionResult{
		TxHash:      receipt.TxHash,
		ExpAmount:   expAmount,
		NewBalance:  newBalance,
		ExplorerURL: s.Gateway.ExplorerURL(receipt.TxHash),
	}, nil
}

// claim marks the account as converting so a concurrent request cannot mint
// against the same balance while this one waits on the chain.
func (s *ConversionService) claim(ctx context.Context, user *models.User, amount int64) error {
	now := s.Clock.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND current_exp >= ?", user.ID, amount).
		Where("(conversion_pending_at IS NULL OR conversion_pending_at < ?)", now.Add(-s.ClaimTTL)).
		Update("conversion_pending_at", now)
	if res.Error != nil {
		return fmt.Errorf("failed to claim account for conversion: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	fresh, err := findUser(ctx, s.DB, user.WalletAddress)
	if err != nil {
		return err
	}
	if fresh.CurrentExp < amount {
		return &InsufficientBalanceError{Available: fresh.CurrentExp, Requested: amount}
	}
	return ErrConversionInProgress
}

func (s *ConversionService) releaseClaim(ctx context.Context, userID string) {
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("conversion_pending_at", gorm.Expr("NULL")).Error; err != nil {
		logger.Warn("failed to release conversion claim", zap.String("user_id", userID), zap.Error(err))
	}
}

// resolveMintFailure classifies a gateway error. A submitted-but-unconfirmed
// mint is re-queried once; it is never treated as a failed mint.
func (s *ConversionService) resolveMintFailure(ctx context.Context, user *models.User, amount int64, mintErr error) (*chain.Receipt, error) {
	var confirmErr *chain.ConfirmationError
	if !errors.As(mintErr, &confirmErr) {
		s.releaseClaim(context.WithoutCancel(ctx), user.ID)
		logger.Warn("mint failed before confirmation",
			zap.String("wallet", user.WalletAddress),
			zap.Int64("exp_amount", amount),
			zap.Error(mintErr),
		)
		reason := mintErr.Error()
		var reverted *chain.RevertedError
		if errors.As(mintErr, &reverted) {
			reason = "transaction reverted"
		}
		return nil, &ChainError{Reason: reason, Err: mintErr}
	}

	txHash := confirmErr.TxHash
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), chain.StatusRecheckTimeout)
	defer cancel()

	status, err := s.Gateway.TransactionStatus(checkCtx, txHash)
	if err == nil {
		switch status {
		case chain.TxStatusConfirmed:
			logger.Warn("confirmation wait failed but mint is confirmed", zap.String("tx_hash", txHash))
			return &chain.Receipt{TxHash: txHash}, nil
		case chain.TxStatusReverted:
			s.releaseClaim(checkCtx, user.ID)
			return nil, &ChainError{Reason: "transaction reverted", Err: &chain.RevertedError{TxHash: txHash}}
		}
	}

	// Outcome unknown. The claim stays so no second mint stacks on this balance.
	logger.Error("mint submitted but confirmation unknown",
		zap.String("wallet", user.WalletAddress),
		zap.String("tx_hash", txHash),
		zap.Int64("exp_amount", amount),
		zap.Error(mintErr),
	)
	s.openCase(checkCtx, user.ID, amount, txHash, models.CaseStatusAwaitingConfirmation, mintErr.Error())
	return nil, &MintPendingError{TxHash: txHash, Err: mintErr}
}

// debit subtracts the confirmed amount and releases the claim in one statement.
func (s *ConversionService) debit(ctx context.Context, userID string, amount int64) (int64, error) {
	var newBalance int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND current_exp >= ?", userID, amount).
			Updates(map[string]any{
				"current_exp":           gorm.Expr("current_exp - ?", amount),
				"conversion_pending_at": gorm.Expr("NULL"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errBalanceChanged
		}

		var user models.User
		if err := tx.Select("current_exp").Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		newBalance = user.CurrentExp
		return nil
	})
	return newBalance, err
}

// logConversion writes the audit row. Failure degrades the trail only.
func (s *ConversionService) logConversion(ctx context.Context, user *models.User, amount int64, txHash string) {
	conversion := models.TokenConversion{
		UserID:    user.ID,
		ExpAmount: amount,
		TxHash:    txHash,
		Status:    models.ConversionStatusConfirmed,
		CreatedAt: s.Clock.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&conversion).Error; err != nil {
		logger.Warn("conversion succeeded but was not logged",
			zap.String("wallet", user.WalletAddress),
			zap.String("tx_hash", txHash),
			zap.Error(err),
		)
		return
	}

	if s.Archive != nil {
		if err := s.Archive.Archive(ctx, "conversions", conversion.ID, conversion); err != nil {
			logger.Warn("failed to archive conversion", zap.String("tx_hash", txHash), zap.Error(err))
		}
	}
}

func (s *ConversionService) openCase(ctx context.Context, userID string, amount int64, txHash string, status models.CaseStatus, detail string) {
	rc := models.ReconciliationCase{
		UserID:    userID,
		ExpAmount: amount,
		TxHash:    txHash,
		Status:    status,
		Detail:    detail,
	}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "detail", "updated_at"}),
	}).Create(&rc).Error; err != nil {
		// Last line of defence: the error log is the only trace left.
		logger.Error("failed to open reconciliation case",
			zap.String("user_id", userID),
			zap.String("tx_hash", txHash),
			zap.String("status", string(status)),
			zap.Int64("exp_amount", amount),
			zap.Error(err),
		)
	}
}

// ListConversions returns the account's confirmed conversions, newest first.
func (s *ConversionService) ListConversions(ctx context.Context, wallet string) ([]models.TokenConversion, error) {
	user, err := findUser(ctx, s.DB, wallet)
	if err != nil {
		return nil, err
	}
	var conversions []models.TokenConversion
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&conversions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversions: %w", err)
	}
	return conversions, nil
}
