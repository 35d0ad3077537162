package wallet

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/chain/eth"
	"github.com/etenda/etenda/internal/gateway"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// KeySigner signs with an in-memory key without asking.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	account common.Address
}

// NewKeySigner wraps key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, account: eth.DeriveAddress(key)}
}

// Account returns the signer's address.
func (s *KeySigner) Account() common.Address { return s.account }

// SignTx signs tx for chainID. A canceled ctx counts as a rejection.
func (s *KeySigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", gateway.ErrSignerRejected, err)
	}
	return eth.SignTx(tx, s.key, chainID)
}

// PromptSigner asks on a terminal before delegating to Inner.
type PromptSigner struct {
	Inner gateway.Signer
	In    io.Reader
	Out   io.Writer
	// Describe renders the pending transaction, such as "submitBid on tender 4".
	Describe func(tx *types.Transaction) string
}

// Account returns the inner signer's address.
func (p *PromptSigner) Account() common.Address { return p.Inner.Account() }

// SignTx prints a summary and waits for y/N. Anything but yes is a rejection.
func (p *PromptSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	summary := fmt.Sprintf("to %s", tx.To().Hex())
	if p.Describe != nil {
		summary = p.Describe(tx)
	}
	_, _ = fmt.Fprintf(p.Out, "\nSign transaction: %s\n", summary)
	_, _ = fmt.Fprintf(p.Out, "  from:      %s\n", p.Inner.Account().Hex())
	_, _ = fmt.Fprintf(p.Out, "  nonce:     %d\n", tx.Nonce())
	_, _ = fmt.Fprintf(p.Out, "  gas limit: %d\n", tx.Gas())
	fees := eth.Fees{Tip: tx.GasTipCap(), Cap: tx.GasFeeCap()}
	_, _ = fmt.Fprintf(p.Out, "  fee cap:   %s (tip %s)\n", eth.FormatGwei(fees.Cap), eth.FormatGwei(fees.Tip))
	_, _ = fmt.Fprintf(p.Out, "  max cost:  %s\n", chain.FormatAmount(fees.MaxCost(tx.Gas())))
	_, _ = fmt.Fprint(p.Out, "Proceed? [y/N]: ")

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.In).ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", gateway.ErrSignerRejected, ctx.Err())
	case a := <-answer:
		if a != "y" && a != "yes" {
			return nil, gateway.ErrSignerRejected
		}
	}
	return p.Inner.SignTx(ctx, tx, chainID)
}

// StoredSigner signs with a key from a KeyStore. The key stays encrypted
// until the first signature, so read-only commands never ask for a password.
type StoredSigner struct {
	store    *KeyStore
	info     *KeyInfo
	password func() ([]byte, error)
	vault    *Vault

	mu     sync.Mutex
	signer *KeySigner
}

// StoredOption configures a StoredSigner.
type StoredOption func(*StoredSigner)

// RememberIn tries the password kept in v before asking, and keeps a
// password that unlocked the key for next time.
func RememberIn(v *Vault) StoredOption { return func(s *StoredSigner) { s.vault = v } }

// NewStoredSigner reads the public metadata of name. password is called at
// most once per successful unlock.
func NewStoredSigner(store *KeyStore, name string, password func() ([]byte, error), opts ...StoredOption) (*StoredSigner, error) {
	info, err := store.Info(name)
	if err != nil {
		return nil, err
	}
	s := &StoredSigner{store: store, info: info, password: password}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Account returns the address recorded in the key file.
func (s *StoredSigner) Account() common.Address { return s.info.Address }

// Info returns the key's metadata.
func (s *StoredSigner) Info() KeyInfo { return *s.info }

// SignTx decrypts the key if needed and signs tx.
func (s *StoredSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signer, err := s.unlock(ctx)
	if err != nil {
		return nil, err
	}
	return signer.SignTx(ctx, tx, chainID)
}

func (s *StoredSigner) unlock(ctx context.Context) (*KeySigner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signer != nil {
		return s.signer, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", gateway.ErrSignerRejected, err)
	}
	if key, ok, err := s.fromVault(); err != nil {
		return nil, err
	} else if ok {
		s.signer = NewKeySigner(key)
		return s.signer, nil
	}

	pw, err := s.password()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gateway.ErrSignerRejected, err)
	}
	defer ZeroBytes(pw)

	key, err := s.store.Load(s.info.Name, string(pw))
	if err != nil {
		return nil, err
	}
	if s.vault != nil {
		// a keychain that refuses the entry does not block signing
		_ = s.vault.Remember(s.info.Address, pw)
	}
	s.signer = NewKeySigner(key)
	return s.signer, nil
}

// fromVault unlocks with a remembered password. A stale entry is dropped
// and reported as a miss so the caller asks instead.
func (s *StoredSigner) fromVault() (*ecdsa.PrivateKey, bool, error) {
	if s.vault == nil {
		return nil, false, nil
	}
	pw, ok := s.vault.Password(s.info.Address)
	if !ok {
		return nil, false, nil
	}
	defer ZeroBytes(pw)

	key, err := s.store.Load(s.info.Name, string(pw))
	switch {
	case err == nil:
		return key, true, nil
	case etendaerr.Is(err, etendaerr.ErrDecryptionFailed):
		_ = s.vault.Forget(s.info.Address)
		return nil, false, nil
	default:
		return nil, false, err
	}
}
