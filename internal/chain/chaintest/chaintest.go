// Package chaintest provides in-memory node and signer fakes for tests.
package chaintest

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Backend is a configurable fake node. Func fields override the default
// behavior; without them it answers from its plain fields.
type Backend struct {
	mu sync.Mutex

	ChainIDValue *big.Int
	ChainIDErr   error
	Nonce        uint64
	GasPrice     *big.Int
	GasTip       *big.Int
	Gas          uint64
	Block        uint64

	EstimateGasFunc func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallFunc        func(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	SendFunc        func(ctx context.Context, tx *types.Transaction) error
	ReceiptFunc     func(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	LogsFunc        func(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	calls    int
}

// NewBackend returns a Backend for chainID with sane gas defaults.
func NewBackend(chainID uint64) *Backend {
	return &Backend{
		ChainIDValue: new(big.Int).SetUint64(chainID),
		GasPrice:     big.NewInt(1_000_000_000),
		GasTip:       big.NewInt(100_000_000),
		Gas:          100_000,
		Block:        100,
		receipts:     make(map[common.Hash]*types.Receipt),
	}
}

// ChainID implements the backend interface.
func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ChainIDErr != nil {
		return nil, b.ChainIDErr
	}
	return new(big.Int).Set(b.ChainIDValue), nil
}

// SetChainID switches the network the fake reports.
func (b *Backend) SetChainID(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ChainIDValue = new(big.Int).SetUint64(id)
}

// BlockNumber implements the backend interface.
func (b *Backend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Block, nil
}

// SetBlock moves the chain head.
func (b *Backend) SetBlock(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Block = n
}

// PendingNonceAt implements the backend interface.
func (b *Backend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Nonce, nil
}

// SuggestGasPrice implements the backend interface.
func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.GasPrice), nil
}

// SuggestGasTipCap implements the backend interface.
func (b *Backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.GasTip), nil
}

// EstimateGas implements the backend interface.
func (b *Backend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if b.EstimateGasFunc != nil {
		return b.EstimateGasFunc(ctx, msg)
	}
	return b.Gas, nil
}

// CallContract implements the backend interface.
func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.CallFunc != nil {
		return b.CallFunc(ctx, msg, block)
	}
	return nil, nil
}

// Calls returns how many CallContract requests were made.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// SendTransaction records tx unless SendFunc fails it.
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if b.SendFunc != nil {
		if err := b.SendFunc(ctx, tx); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

// Sent returns the broadcast transactions in order.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*types.Transaction, len(b.sent))
	copy(out, b.sent)
	return out
}

// SetReceipt makes a receipt available for hash.
func (b *Backend) SetReceipt(hash common.Hash, r *types.Receipt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.receipts == nil {
		b.receipts = make(map[common.Hash]*types.Receipt)
	}
	b.receipts[hash] = r
}

// TransactionReceipt returns a stored receipt or ethereum.NotFound.
func (b *Backend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if b.ReceiptFunc != nil {
		return b.ReceiptFunc(ctx, hash)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

// FilterLogs implements the backend interface.
func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if b.LogsFunc != nil {
		return b.LogsFunc(ctx, q)
	}
	return nil, nil
}

// Signer signs with an in-memory key. Err, when set, is returned instead
// of a signature.
type Signer struct {
	Key *ecdsa.PrivateKey
	Err error

	mu     sync.Mutex
	signed int
}

// NewSigner returns a Signer with a fresh key.
func NewSigner() *Signer {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return &Signer{Key: key}
}

// Account returns the key's address.
func (s *Signer) Account() common.Address {
	return crypto.PubkeyToAddress(s.Key.PublicKey)
}

// SignTx signs tx for chainID.
func (s *Signer) SignTx(_ context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.signed++
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.Key)
}

// Signed returns how many transactions were signed.
func (s *Signer) Signed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signed
}

// SuccessReceipt builds a successful receipt for tx mined at block.
func SuccessReceipt(tx *types.Transaction, block uint64, logs ...*types.Log) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(block),
		GasUsed:     tx.Gas() / 2,
		Logs:        logs,
	}
}

// FailedReceipt builds a reverted receipt for tx mined at block.
func FailedReceipt(tx *types.Transaction, block uint64) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusFailed,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(block),
		GasUsed:     tx.Gas(),
	}
}
