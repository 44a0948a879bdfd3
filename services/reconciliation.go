// services/reconciliation.go
package services

import (
	"context"
	"fmt"

	"learning-rewards-service/chain"
	"learning-rewards-service/logger"
	"learning-rewards-service/models"

	"go.uber.org/zap"
)

// ReconcileSummary counts what one reconciliation pass did.
type ReconcileSummary struct {
	Checked   int
	Settled   int
	Failed    int
	Pending   int
	Escalated int
	Open      int64
}

// ReconcilePending re-queries every mint whose confirmation was never observed.
// A confirmed mint gets the debit it missed, a reverted one releases the claim,
// and anything still undetermined keeps the account blocked.
func (s *ConversionService) ReconcilePending(ctx context.Context) (ReconcileSummary, error) {
	var summary ReconcileSummary

	var cases []models.ReconciliationCase
	if err := s.DB.WithContext(ctx).
		Where("status = ?", models.CaseStatusAwaitingConfirmation).
		Order("created_at ASC").
		Find(&cases).Error; err != nil {
		return summary, fmt.Errorf("failed to fetch awaiting cases: %w", err)
	}

	for i := range cases {
		rc := &cases[i]
		summary.Checked++

		status, err := s.Gateway.TransactionStatus(ctx, rc.TxHash)
		if err != nil {
			logger.Warn("could not re-query mint", zap.String("tx_hash", rc.TxHash), zap.Error(err))
			status = chain.TxStatusPending
		}

		switch status {
		case chain.TxStatusConfirmed:
			if s.settle(ctx, rc) {
				summary.Settled++
			} else {
				summary.Escalated++
			}
		case chain.TxStatusReverted:
			s.updateCase(ctx, rc, models.CaseStatusMintFailed, "transaction reverted")
			s.releaseClaim(ctx, rc.UserID)
			summary.Failed++
			logger.Info("pending mint reverted, claim released",
				zap.String("user_id", rc.UserID),
				zap.String("tx_hash", rc.TxHash),
			)
		default:
			s.updateCase(ctx, rc, rc.Status, rc.Detail)
			s.refreshClaim(ctx, rc.UserID)
			summary.Pending++
		}
	}

	if err := s.DB.WithContext(ctx).Model(&models.ReconciliationCase{}).
		Where("status = ?", models.CaseStatusNeedsOperator).
		Count(&summary.Open).Error; err != nil {
		return summary, fmt.Errorf("failed to count open cases: %w", err)
	}
	if summary.Open > 0 {
		logger.Error("reconciliation cases need an operator", zap.Int64("open", summary.Open))
	}
	return summary, nil
}

// settle applies the debit a late-confirmed mint never got.
func (s *ConversionService) settle(ctx context.Context, rc *models.ReconciliationCase) bool {
	newBalance, err := s.debit(ctx, rc.UserID, rc.ExpAmount)
	if err != nil {
		logger.Error("late-confirmed mint could not be debited",
			zap.String("user_id", rc.UserID),
			zap.String("tx_hash", rc.TxHash),
			zap.Int64("exp_amount", rc.ExpAmount),
			zap.Error(err),
		)
		s.updateCase(ctx, rc, models.CaseStatusNeedsOperator, err.Error())
		return false
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", rc.UserID).First(&user).Error; err == nil {
		s.logConversion(ctx, &user, rc.ExpAmount, rc.TxHash)
	}
	s.updateCase(ctx, rc, models.CaseStatusResolved, "confirmed on re-query; EXP debited")

	logger.Info("late-confirmed mint settled",
		zap.String("user_id", rc.UserID),
		zap.String("tx_hash", rc.TxHash),
		zap.Int64("new_balance", newBalance),
	)
	return true
}

func (s *ConversionService) updateCase(ctx context.Context, rc *models.ReconciliationCase, status models.CaseStatus, detail string) {
	now := s.Clock.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(&models.ReconciliationCase{}).
		Where("id = ?", rc.ID).
		Updates(map[string]any{
			"status":          status,
			"detail":          detail,
			"last_checked_at": now,
		}).Error; err != nil {
		logger.Error("failed to update reconciliation case",
			zap.String("tx_hash", rc.TxHash),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// refreshClaim keeps an undetermined mint from timing out into a second conversion.
func (s *ConversionService) refreshClaim(ctx context.Context, userID string) {
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("conversion_pending_at", s.Clock.Now().UTC()).Error; err != nil {
		logger.Warn("failed to refresh conversion claim", zap.String("user_id", userID), zap.Error(err))
	}
}

// ListCases returns reconciliation cases in the given status, oldest first.
func (s *ConversionService) ListCases(ctx context.Context, status models.CaseStatus) ([]models.ReconciliationCase, error) {
	var cases []models.ReconciliationCase
	if err := s.DB.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reconciliation cases: %w", err)
	}
	return cases, nil
}
