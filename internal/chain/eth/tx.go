package eth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TxRequest is a contract call ready to be turned into a transaction.
type TxRequest struct {
	From     common.Address
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64 // zero means estimate
}

// TxBackend is the subset of node calls needed to build a transaction.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Builder fills in nonce, fee caps and gas limit for a TxRequest.
type Builder struct {
	Backend TxBackend
	ChainID *big.Int
	Nonces  *NonceManager
	Speed   GasSpeed
	// FixedGasLimit skips estimation when non-zero.
	FixedGasLimit uint64
}

// Build returns an unsigned dynamic-fee transaction for req. The nonce is
// allocated from Nonces; callers must Release it if the transaction is
// never broadcast.
func (b *Builder) Build(ctx context.Context, req TxRequest) (*types.Transaction, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	price, err := b.Backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}
	tip, err := b.Backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting priority fee: %w", err)
	}
	fees := FeesFor(price, tip, b.Speed)

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = b.FixedGasLimit
	}
	if gasLimit == 0 {
		to := req.To
		est, estErr := b.Backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  req.From,
			To:    &to,
			Value: value,
			Data:  req.Data,
		})
		if estErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrGasEstimation, estErr)
		}
		gasLimit = PadLimit(est)
	}

	pending, err := b.Backend.PendingNonceAt(ctx, req.From)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}
	nonce := pending
	if b.Nonces != nil {
		nonce = b.Nonces.Next(req.From, pending)
	}

	to := req.To
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   b.ChainID,
		Nonce:     nonce,
		To:        &to,
		Value:     value,
		Gas:       gasLimit,
		GasTipCap: fees.Tip,
		GasFeeCap: fees.Cap,
		Data:      req.Data,
	}), nil
}

// SignTx signs tx for chainID with key.
func SignTx(tx *types.Transaction, key *ecdsa.PrivateKey, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// DeriveAddress returns the account address controlled by key.
func DeriveAddress(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
