// Package chain wraps the external token contract behind submit-and-wait calls.
// It holds no state of its own; the contracts are the ledgers.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// SubmitTimeout bounds signing and broadcasting one mint, queueing for the admin nonce included.
	SubmitTimeout = time.Minute
	// StatusRecheckTimeout bounds the single status query after a failed confirmation wait.
	StatusRecheckTimeout = 15 * time.Second
)

// MintWindow is the longest a caller can wait on one mint before its outcome is known.
func MintWindow(confirmTimeout time.Duration) time.Duration {
	return SubmitTimeout + confirmTimeout + StatusRecheckTimeout
}

// TxStatus is what the chain currently says about a submitted transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusReverted  TxStatus = "reverted"
)

// Receipt identifies a mined, successful transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
}

// Gateway is the chain surface the conversion bridge needs.
type Gateway interface {
	// MintTokens mints expAmount tokens to the wallet and blocks until the
	// transaction is mined. Once submitted, cancelling ctx does not stop the wait.
	MintTokens(ctx context.Context, wallet string, expAmount int64) (*Receipt, error)

	// TransactionStatus re-queries a previously submitted transaction.
	TransactionStatus(ctx context.Context, txHash string) (TxStatus, error)

	// ExplorerURL links a transaction hash to a block explorer.
	ExplorerURL(txHash string) string
}

// SubmitError means the transaction never reached the chain. Nothing was minted.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return fmt.Sprintf("mint submission failed: %v", e.Err) }
func (e *SubmitError) Unwrap() error { return e.Err }

// ConfirmationError means the transaction was submitted but its outcome is unknown.
// It may still confirm; callers must re-query TxHash instead of assuming failure.
type ConfirmationError struct {
	TxHash string
	Err    error
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("mint %s submitted but not confirmed: %v", e.TxHash, e.Err)
}
func (e *ConfirmationError) Unwrap() error { return e.Err }

// RevertedError means the transaction was mined and failed. Nothing was minted.
type RevertedError struct {
	TxHash string
}

func (e *RevertedError) Error() string { return fmt.Sprintf("mint %s reverted", e.TxHash) }

// ErrInvalidAddress is returned for a wallet that is not a 20-byte hex address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// TokenUnits scales a whole-token amount to the contract's fixed-point base units.
func TokenUnits(amount int64, decimals int32) *big.Int {
	return decimal.NewFromInt(amount).Shift(decimals).BigInt()
}
