package gateway

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/etenda/etenda/internal/chain/eth"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// Snapshot is an immutable view of the provider at one point in time.
// An operation pins the snapshot it was prepared against.
type Snapshot struct {
	generation uint64
	account    common.Address
	hasAccount bool
	networkID  uint64
	chainID    *big.Int
	backend    Backend
	signer     Signer
	builder    *eth.Builder
}

// Handle identifies a broadcast transaction.
type Handle struct {
	Hash        common.Hash
	From        common.Address
	Nonce       uint64
	NetworkID   uint64
	SubmittedAt time.Time
}

// Generation increments whenever the account or network changes.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Account returns the signing account, if any.
func (s *Snapshot) Account() (common.Address, bool) { return s.account, s.hasAccount }

// NetworkID returns the chain id, or 0 without a provider.
func (s *Snapshot) NetworkID() uint64 { return s.networkID }

// Backend returns the node backend, or a no-provider error.
func (s *Snapshot) Backend() (Backend, error) {
	if s.backend == nil {
		return nil, etendaerr.WithSuggestion(etendaerr.ErrNoProvider,
			"configure an RPC endpoint with --rpc or ETENDA_RPC")
	}
	return s.backend, nil
}

// Sign builds tx from req and hands it to the signer. The From field is
// always the snapshot's account. A nonce allocated here is released if the
// signer fails.
func (s *Snapshot) Sign(ctx context.Context, req eth.TxRequest) (*types.Transaction, error) {
	if _, err := s.Backend(); err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, etendaerr.WithSuggestion(
			etendaerr.WithDetails(etendaerr.ErrNoProvider, map[string]string{"missing": "signer"}),
			"configure a key with --key or ETENDA_KEY")
	}

	req.From = s.account
	tx, err := s.builder.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	signed, err := s.signer.SignTx(ctx, tx, s.chainID)
	if err != nil {
		s.builder.Nonces.Release(s.account, tx.Nonce())
		return nil, err
	}
	return signed, nil
}

// Broadcast submits a signed transaction. On failure the nonce is released
// so the next operation can reuse it.
func (s *Snapshot) Broadcast(ctx context.Context, signed *types.Transaction) (Handle, error) {
	backend, err := s.Backend()
	if err != nil {
		return Handle{}, err
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		if s.builder != nil {
			s.builder.Nonces.Release(s.account, signed.Nonce())
		}
		return Handle{}, err
	}
	return Handle{
		Hash:        signed.Hash(),
		From:        s.account,
		Nonce:       signed.Nonce(),
		NetworkID:   s.networkID,
		SubmittedAt: time.Now(),
	}, nil
}
