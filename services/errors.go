package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a wallet address does not resolve to an account.
var ErrNotFound = errors.New("user not found")

// ErrConversionInProgress is returned while another conversion holds the account.
var ErrConversionInProgress = errors.New("another conversion is in progress for this account")

// ValidationError rejects malformed input before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type InsufficientBalanceError struct {
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient EXP: available %d, requested %d", e.Available, e.Requested)
}

// ChainError means the mint did not happen. Nothing changed off-chain; safe to retry.
type ChainError struct {
	Reason string
	Err    error
}

func (e *ChainError) Error() string { return "blockchain transaction failed: " + e.Reason }
func (e *ChainError) Unwrap() error { return e.Err }

// MintPendingError means the mint was submitted but its confirmation was not
// observed. It must not be retried: the mint may still land.
type MintPendingError struct {
	TxHash string
	Err    error
}

func (e *MintPendingError) Error() string {
	return fmt.Sprintf("mint %s submitted, confirmation pending", e.TxHash)
}
func (e *MintPendingError) Unwrap() error { return e.Err }

// PostMintReconciliationError means tokens were minted but EXP was not debited.
// The mint cannot be undone and the request must not be retried.
type PostMintReconciliationError struct {
	TxHash string
	Err    error
}

func (e *PostMintReconciliationError) Error() string {
	return fmt.Sprintf("tokens minted in %s but EXP balance was not updated; reconciliation required", e.TxHash)
}
func (e *PostMintReconciliationError) Unwrap() error { return e.Err }

// LoggingFailedError means an already-final on-chain fact could not be mirrored.
type LoggingFailedError struct {
	TxHash string
	Err    error
}

func (e *LoggingFailedError) Error() string {
	return fmt.Sprintf("failed to log redemption %s; the on-chain voucher is unaffected", e.TxHash)
}
func (e *LoggingFailedError) Unwrap() error { return e.Err }
