package chain

import (
	"context"
	"errors"
)

var ErrChainDisabled = errors.New("chain gateway disabled")

// Disabled refuses every mint. Used when CHAIN_DISABLED=true so the
// reward ledger can run without RPC access.
type Disabled struct{}

func (Disabled) MintTokens(ctx context.Context, wallet string, expAmount int64) (*Receipt, error) {
	return nil, &SubmitError{Err: ErrChainDisabled}
}

func (Disabled) TransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	return "", ErrChainDisabled
}

func (Disabled) ExplorerURL(txHash string) string { return "" }
