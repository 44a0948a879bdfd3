package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"learning-rewards-service/chain"
	"learning-rewards-service/database"
	"learning-rewards-service/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testWallet = "0xAbCdEf0000000000000000000000000000000001"

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

var errInjected = errors.New("injected write failure")

func seedUser(t *testing.T, db *gorm.DB, wallet string, exp int64) *models.User {
	t.Helper()
	user := &models.User{WalletAddress: wallet, CurrentExp: exp, TotalExpEarned: exp}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, "id = ?", id).Error)
	return user
}

func seedVoucher(t *testing.T, db *gorm.DB, id, tokenID, cost int64, active bool) *models.Voucher {
	t.Helper()
	voucher := &models.Voucher{
		ID:          id,
		Name:        fmt.Sprintf("Voucher %d", id),
		Discount:    "10%",
		PartnerName: "Warung Kopi",
		CostInRindo: cost,
		NFTTokenID:  tokenID,
		IsActive:    active,
	}
	require.NoError(t, db.Create(voucher).Error)
	return voucher
}

// failWrites makes every create or update against table fail from now on.
func failWrites(t *testing.T, db *gorm.DB, op, table string) {
	t.Helper()
	name := fmt.Sprintf("test:fail_%s_%s", op, table)
	cb := func(d *gorm.DB) {
		if d.Statement.Table == table {
			_ = d.AddError(errInjected)
		}
	}
	switch op {
	case "create":
		require.NoError(t, db.Callback().Create().Before("gorm:create").Register(name, cb))
	case "update":
		require.NoError(t, db.Callback().Update().Before("gorm:update").Register(name, cb))
	default:
		t.Fatalf("unknown op %q", op)
	}
}

type mintCall struct {
	Wallet string
	Amount int64
	TxHash string
}

type fakeGateway struct {
	mu        sync.Mutex
	mints     []mintCall
	mintErr   error
	status    chain.TxStatus
	statusErr error
	onMint    func()
	seq       int
}

func (f *fakeGateway) MintTokens(ctx context.Context, wallet string, expAmount int64) (*chain.Receipt, error) {
	f.mu.Lock()
	hook := f.onMint
	f.mu.Unlock()
	// The hook may call back into the service, so it runs unlocked.
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mintErr != nil {
		return nil, f.mintErr
	}
	f.seq++
	hash := fmt.Sprintf("0x%064x", f.seq)
	f.mints = append(f.mints, mintCall{Wallet: wallet, Amount: expAmount, TxHash: hash})
	return &chain.Receipt{TxHash: hash, BlockNumber: uint64(f.seq)}, nil
}

func (f *fakeGateway) TransactionStatus(ctx context.Context, txHash string) (chain.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func (f *fakeGateway) ExplorerURL(txHash string) string {
	return "https://explorer.test/tx/" + txHash
}

func (f *fakeGateway) mintCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mints)
}

type fakeArchive struct {
	mu      sync.Mutex
	records map[string]any
	err     error
}

func (a *fakeArchive) Archive(ctx context.Context, kind, id string, record any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.records == nil {
		a.records = map[string]any{}
	}
	a.records[kind+"/"+id] = record
	return nil
}

type testEnv struct {
	db          *gorm.DB
	clock       *clockwork.FakeClock
	gateway     *fakeGateway
	rewards     *RewardService
	conversions *ConversionService
	redemptions *RedemptionService
	flashcards  *FlashcardService
	accounts    *AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := database.OpenTest(t)
	clock := clockwork.NewFakeClockAt(t0)
	gateway := &fakeGateway{}
	return &testEnv{
		db:          db,
		clock:       clock,
		gateway:     gateway,
		rewards:     NewRewardService(db, clock, DefaultFlashcardWindow),
		conversions: NewConversionService(db, gateway, clock, DefaultConversionClaimTTL),
		redemptions: NewRedemptionService(db, clock),
		flashcards:  NewFlashcardService(db, NewReviewScheduler(clock)),
		accounts:    NewAccountService(db),
	}
}
