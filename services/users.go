// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"

	"learning-rewards-service/logger"
	"learning-rewards-service/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AccountService struct {
	DB *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{DB: db}
}

// findUser resolves a wallet address on db, which may be a transaction.
func findUser(ctx context.Context, db *gorm.DB, wallet string) (*models.User, error) {
	normalized := models.NormalizeWallet(wallet)
	if normalized == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "wallet address is required"}
	}

	var user models.User
	err := db.WithContext(ctx).Where("wallet_address = ?", normalized).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// ResolveAccount maps a wallet address to its account.
func (s *AccountService) ResolveAccount(ctx context.Context, wallet string) (*models.User, error) {
	return findUser(ctx, s.DB, wallet)
}

// SyncAccount creates the account on first login with zero EXP, or refreshes
// the profile fields of an existing one without touching balances.
func (s *AccountService) SyncAccount(ctx context.Context, wallet string, email, name *string) (*models.User, error) {
	existing, err := findUser(ctx, s.DB, wallet)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		updates := map[string]any{}
		if email != nil && *email != "" {
			updates["email"] = *email
		}
		if name != nil && *name != "" {
			updates["name"] = *name
		}
		if len(updates) > 0 {
			if err := s.DB.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("failed to update user: %w", err)
			}
		}
		logger.Debug("user profile synced", zap.String("wallet", existing.WalletAddress))
		return findUser(ctx, s.DB, wallet)
	}

	user := &models.User{
		WalletAddress: wallet,
		Email:         email,
		Name:          name,
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		// Lost a race with a concurrent first login; the row exists now.
		if again, findErr := findUser(ctx, s.DB, wallet); findErr == nil {
			return again, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logger.Info("new user created", zap.String("wallet", user.WalletAddress), zap.String("user_id", user.ID))
	return user, nil
}
