package services

import (
	"context"
	"testing"

	"learning-rewards-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestSyncAccountCreatesWithZeroEXP(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.accounts.SyncAccount(context.Background(), testWallet, strPtr("a@example.com"), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.NormalizeWallet(testWallet), user.WalletAddress)
	assert.Zero(t, user.CurrentExp)
	assert.Zero(t, user.TotalExpEarned)
	require.NotNil(t, user.Email)
	assert.Equal(t, "a@example.com", *user.Email)
}

func TestSyncAccountPreservesBalances(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedUser(t, env.db, testWallet, 40)
	ctx := context.Background()

	user, err := env.accounts.SyncAccount(ctx, testWallet, nil, strPtr("Ada"))
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
	assert.Equal(t, int64(40), user.CurrentExp)
	require.NotNil(t, user.Name)
	assert.Equal(t, "Ada", *user.Name)

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSyncAccountRequiresWallet(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.SyncAccount(context.Background(), "  ", nil, nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestResolveAccount(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedUser(t, env.db, testWallet, 0)
	ctx := context.Background()

	user, err := env.accounts.ResolveAccount(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)

	_, err = env.accounts.ResolveAccount(ctx, "0xmissing")
	assert.ErrorIs(t, err, ErrNotFound)
}
