package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"learning-rewards-service/chain"
	"learning-rewards-service/database"
	"learning-rewards-service/models"
	"learning-rewards-service/services"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const wallet = "0x1111111111111111111111111111111111111111"

type stubGateway struct {
	mu        sync.Mutex
	mintErr   error
	status    chain.TxStatus
	afterMint func()
	n         int
}

func (g *stubGateway) MintTokens(ctx context.Context, w string, amount int64) (*chain.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mintErr != nil {
		return nil, g.mintErr
	}
	g.n++
	if g.afterMint != nil {
		g.afterMint()
	}
	return &chain.Receipt{TxHash: fmt.Sprintf("0x%02d", g.n)}, nil
}

func (g *stubGateway) TransactionStatus(ctx context.Context, txHash string) (chain.TxStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status, nil
}

func (g *stubGateway) ExplorerURL(txHash string) string { return "https://scan.test/tx/" + txHash }

type harness struct {
	app     *fiber.App
	db      *gorm.DB
	gateway *stubGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := database.OpenTest(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	gateway := &stubGateway{status: chain.TxStatusPending}

	app := fiber.New()
	SetupExpRoutes(app,
		services.NewRewardService(db, clock, services.DefaultFlashcardWindow),
		services.NewConversionService(db, gateway, clock, services.DefaultConversionClaimTTL),
	)
	SetupVoucherRoutes(app, services.NewRedemptionService(db, clock))
	SetupFlashcardRoutes(app, services.NewFlashcardService(db, services.NewReviewScheduler(clock)))
	SetupUserRoutes(app, services.NewAccountService(db))
	return &harness{app: app, db: db, gateway: gateway}
}

func (h *harness) seed(t *testing.T, exp int64) {
	t.Helper()
	require.NoError(t, h.db.Create(&models.User{WalletAddress: wallet, CurrentExp: exp, TotalExpEarned: exp}).Error)
}

func (h *harness) seedVoucher(t *testing.T, id, tokenID, cost int64, active bool) {
	t.Helper()
	require.NoError(t, h.db.Create(&models.Voucher{
		ID:          id,
		Name:        fmt.Sprintf("Voucher %d", id),
		Discount:    "15%",
		PartnerName: "Toko Buku",
		CostInRindo: cost,
		NFTTokenID:  tokenID,
		IsActive:    active,
	}).Error)
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestAddExp(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 0)
	body := fiber.Map{"user_id": wallet, "type": "video_complete", "source_id": 1}

	status, out := h.do(t, "POST", "/exp/add", body)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, true, out["credited"])
	assert.EqualValues(t, 10, out["amount"])
	assert.EqualValues(t, 10, out["total_earned"])
	assert.EqualValues(t, 10, out["new_balance"])
	assert.Equal(t, "+10 EXP awarded", out["message"])

	status, out = h.do(t, "POST", "/exp/add", body)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, false, out["credited"])
	assert.EqualValues(t, 10, out["new_balance"])
	assert.Equal(t, "Already earned for this source", out["message"])
}

func TestAddExpErrors(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 0)

	status, out := h.do(t, "POST", "/exp/add", fiber.Map{"user_id": wallet, "type": "bogus", "source_id": 1})
	assert.Equal(t, fiber.StatusBadRequest, status)
	details, ok := out["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "type", details["field"])

	status, _ = h.do(t, "POST", "/exp/add", fiber.Map{"user_id": "0xnobody", "type": "video_complete", "source_id": 1})
	assert.Equal(t, fiber.StatusNotFound, status)

	req := httptest.NewRequest("POST", "/exp/add", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestConvert(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 20)

	status, out := h.do(t, "POST", "/exp/convert", fiber.Map{"user_id": wallet, "exp_amount": 15})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "0x01", out["tx_hash"])
	assert.EqualValues(t, 5, out["new_balance"])
	assert.Equal(t, "https://scan.test/tx/0x01", out["explorer_url"])

	status, out = h.do(t, "POST", "/exp/convert", fiber.Map{"user_id": wallet, "exp_amount": 10})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.EqualValues(t, 5, out["available"])
	assert.EqualValues(t, 10, out["requested"])

	status, out = h.do(t, "GET", "/exp/conversions?user_id="+wallet, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["conversions"], 1)
}

func TestConvertChainFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 20)
	h.gateway.mintErr = &chain.SubmitError{Err: errors.New("nonce too low")}

	status, out := h.do(t, "POST", "/exp/convert", fiber.Map{"user_id": wallet, "exp_amount": 5})
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Contains(t, out["details"], "nonce too low")
}

func TestConvertPendingThenInProgress(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 20)
	h.gateway.mintErr = &chain.ConfirmationError{TxHash: "0xwait", Err: context.DeadlineExceeded}

	status, out := h.do(t, "POST", "/exp/convert", fiber.Map{"user_id": wallet, "exp_amount": 5})
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, "0xwait", out["tx_hash"])

	h.gateway.mintErr = nil
	status, _ = h.do(t, "POST", "/exp/convert", fiber.Map{"user_id": wallet, "exp_amount": 5})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestConvertPostMintFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 20)
	var failing atomic.Bool
	require.NoError(t, h.db.Callback().Update().Before("gorm:update").Register("test:fail_debit", func(d *gorm.DB) {
		if failing.Load() && d.Statement.Table == "users" {
			_ = d.AddError(errors.New("disk full"))
		}
	}))
	// The claim is an update too; only the debit after the mint fails.
	h.gateway.afterMint = func() { failing.Store(true) }

	status, out := h.do(t, "POST", "/exp/convert", fiber.Map{"user_id": wallet, "exp_amount": 5})
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "0x01", out["tx_hash"])
	assert.Equal(t, true, out["reconciliation_required"])

	status, out = h.do(t, "GET", "/reconciliation/cases", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "needs_operator", out["status"])
	assert.Len(t, out["cases"], 1)
}

func TestVoucherCatalog(t *testing.T) {
	h := newHarness(t)
	h.seedVoucher(t, 1, 40, 100, true)
	h.seedVoucher(t, 2, 44, 30, true)
	h.seedVoucher(t, 3, 45, 10, false)

	status, out := h.do(t, "GET", "/vouchers", nil)
	assert.Equal(t, fiber.StatusOK, status)
	vouchers, ok := out["vouchers"].([]any)
	require.True(t, ok)
	require.Len(t, vouchers, 2)
	first := vouchers[0].(map[string]any)
	assert.EqualValues(t, 2, first["id"])
	assert.EqualValues(t, 30, first["cost_in_rindo"])
	assert.Equal(t, "Toko Buku", first["partner_name"])
}

func TestVoucherRedeem(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 0)
	h.seedVoucher(t, 2, 44, 30, true)
	body := fiber.Map{"user_id": wallet, "voucher_id": 2, "nft_token_id": 44, "tx_hash": "0xNFT"}

	status, out := h.do(t, "POST", "/voucher/redeem", body)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["success"])

	body["tx_hash"] = "0xnft"
	status, _ = h.do(t, "POST", "/voucher/redeem", body)
	assert.Equal(t, fiber.StatusOK, status)

	status, out = h.do(t, "GET", "/voucher/redemptions?user_id="+wallet, nil)
	assert.Equal(t, fiber.StatusOK, status)
	redemptions, ok := out["redemptions"].([]any)
	require.True(t, ok)
	require.Len(t, redemptions, 1)
	redemption := redemptions[0].(map[string]any)
	assert.Equal(t, "0xnft", redemption["tx_hash"])
	voucher, ok := redemption["voucher"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Voucher 2", voucher["name"])
	assert.Equal(t, "15%", voucher["discount"])
}

func TestVoucherRedeemUnknownVoucher(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 0)

	status, out := h.do(t, "POST", "/voucher/redeem", fiber.Map{"user_id": wallet, "voucher_id": 9, "nft_token_id": 44, "tx_hash": "0xnft"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	details, ok := out["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "voucher_id", details["field"])
}

func TestVoucherRedeemLoggingFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 0)
	h.seedVoucher(t, 2, 44, 30, true)
	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register("test:fail_redemption", func(d *gorm.DB) {
		if d.Statement.Table == "voucher_redemptions" {
			_ = d.AddError(errors.New("connection reset"))
		}
	}))

	status, out := h.do(t, "POST", "/voucher/redeem", fiber.Map{"user_id": wallet, "voucher_id": 2, "nft_token_id": 44, "tx_hash": "0xnft"})
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, true, out["nft_minted"])
	assert.Equal(t, "0xnft", out["tx_hash"])
}

func TestFlashcardReviewAndDue(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 0)

	status, out := h.do(t, "POST", "/flashcard/review", fiber.Map{"user_id": wallet, "flashcard_id": 5, "difficulty": "repeat"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["success"])
	review, ok := out["review"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "repeat", review["difficulty"])

	status, out = h.do(t, "GET", "/flashcard/due?user_id="+wallet, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, out["count"])

	status, _ = h.do(t, "POST", "/flashcard/review", fiber.Map{"user_id": wallet, "flashcard_id": 5, "difficulty": "later"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAuthSyncAndSummary(t *testing.T) {
	h := newHarness(t)

	status, out := h.do(t, "POST", "/auth/sync", fiber.Map{"wallet_address": wallet, "email": "learner@example.com"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["success"])

	status, out = h.do(t, "GET", "/user/"+wallet, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, wallet, out["wallet_address"])
	assert.EqualValues(t, 0, out["current_exp"])

	status, _ = h.do(t, "GET", "/user/0xmissing", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
