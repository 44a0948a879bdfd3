package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"learning-rewards-service/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// tokenABI only carries the admin mint entry point of the reward token.
const tokenABI = `[{"type":"function","name":"mintFromEXP","stateMutability":"nonpayable","inputs":[{"name":"user","type":"address"},{"name":"expAmount","type":"uint256"}],"outputs":[]}]`

type EthereumConfig struct {
	RPCURL          string
	ChainID         int64
	TokenAddress    string
	TokenDecimals   int32
	AdminPrivateKey string
	ConfirmTimeout  time.Duration
	ExplorerBaseURL string
}

// EthereumGateway mints reward tokens from the admin wallet over JSON-RPC.
type EthereumGateway struct {
	client          *ethclient.Client
	token           *bind.BoundContract
	signer          *ecdsa.PrivateKey
	chainID         *big.Int
	decimals        int32
	confirmTimeout  time.Duration
	explorerBaseURL string

	// One admin key means one nonce sequence; submissions take turns.
	submitSem chan struct{}
}

func DialEthereum(ctx context.Context, cfg EthereumConfig) (*EthereumGateway, error) {
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("token address %q: %w", cfg.TokenAddress, ErrInvalidAddress)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.AdminPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin private key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC: %w", err)
	}

	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}

	address := common.HexToAddress(cfg.TokenAddress)
	logger.Info("chain gateway ready",
		zap.String("token", address.Hex()),
		zap.String("admin", crypto.PubkeyToAddress(key.PublicKey).Hex()),
		zap.Int64("chain_id", cfg.ChainID),
	)

	return &EthereumGateway{
		client:          client,
		token:           bind.NewBoundContract(address, parsed, client, client, client),
		signer:          key,
		chainID:         big.NewInt(cfg.ChainID),
		decimals:        cfg.TokenDecimals,
		confirmTimeout:  confirmTimeout,
		explorerBaseURL: cfg.ExplorerBaseURL,
		submitSem:       make(chan struct{}, 1),
	}, nil
}

func (g *EthereumGateway) Close() {
	g.client.Close()
}

func (g *EthereumGateway) MintTokens(ctx context.Context, wallet string, expAmount int64) (*Receipt, error) {
	if !common.IsHexAddress(wallet) {
		return nil, &SubmitError{Err: fmt.Errorf("%q: %w", wallet, ErrInvalidAddress)}
	}

	tx, err := g.submitMint(ctx, common.HexToAddress(wallet), TokenUnits(expAmount, g.decimals))
	if err != nil {
		return nil, &SubmitError{Err: err}
	}
	txHash := tx.Hash().Hex()
	logger.Info("mint submitted", zap.String("tx_hash", txHash), zap.String("wallet", wallet), zap.Int64("exp_amount", expAmount))

	// The mint is on its way; the caller going away must not abandon the wait.
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, g.client, tx)
	if err != nil {
		return nil, &ConfirmationError{TxHash: txHash, Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &RevertedError{TxHash: txHash}
	}

	logger.Info("mint confirmed", zap.String("tx_hash", txHash), zap.Uint64("block", receipt.BlockNumber.Uint64()))
	return &Receipt{TxHash: txHash, BlockNumber: receipt.BlockNumber.Uint64()}, nil
}

func (g *EthereumGateway) submitMint(ctx context.Context, to common.Address, amount *big.Int) (*types.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, SubmitTimeout)
	defer cancel()

	select {
	case g.submitSem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for admin nonce: %w", ctx.Err())
	}
	defer func() { <-g.submitSem }()

	opts, err := bind.NewKeyedTransactorWithChainID(g.signer, g.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return g.token.Transact(opts, "mintFromEXP", to, amount)
}

func (g *EthereumGateway) TransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	receipt, err := g.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return TxStatusPending, nil
	}
	if err != nil {
		return "", err
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return TxStatusConfirmed, nil
	}
	return TxStatusReverted, nil
}

func (g *EthereumGateway) ExplorerURL(txHash string) string {
	return g.explorerBaseURL + txHash
}
