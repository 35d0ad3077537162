// Package gateway mediates all access to the ledger node and the signer.
// Callers work against immutable snapshots; a provider swap produces a new
// snapshot and notifies subscribers.
package gateway

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/etenda/etenda/internal/chain/eth"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// ErrSignerRejected is returned by a Signer that declines to sign.
var ErrSignerRejected = errors.New("signer rejected the request")

// Backend is the node surface the rest of the system needs.
// *eth.Client satisfies it.
type Backend interface {
	eth.TxBackend
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Signer holds the account key and approves signatures.
type Signer interface {
	Account() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Provider pairs a node backend with an optional signer.
type Provider struct {
	Backend Backend
	Signer  Signer // nil for read-only use
}

// EventKind identifies a gateway notification.
type EventKind int

// Event kinds.
const (
	AccountChanged EventKind = iota + 1
	NetworkChanged
)

func (k EventKind) String() string {
	switch k {
	case AccountChanged:
		return "account_changed"
	case NetworkChanged:
		return "network_changed"
	default:
		return "unknown"
	}
}

// Event describes a change between two snapshots.
type Event struct {
	Kind       EventKind
	Generation uint64
	Account    common.Address
	HasAccount bool
	NetworkID  uint64
	Previous   *Snapshot
}

// Gateway owns the current snapshot.
type Gateway struct {
	current atomic.Pointer[Snapshot]

	replaceMu sync.Mutex
	provider  *Provider
	nonces    *eth.NonceManager

	subMu   sync.Mutex
	subs    map[EventKind]map[int]func(Event)
	nextSub int

	speed    eth.GasSpeed
	gasLimit uint64
	log      zerolog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithGasSpeed sets the gas price strategy for signed transactions.
func WithGasSpeed(s eth.GasSpeed) Option {
	return func(g *Gateway) { g.speed = s }
}

// WithGasLimit fixes the gas limit instead of estimating it.
func WithGasLimit(limit uint64) Option {
	return func(g *Gateway) { g.gasLimit = limit }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// New returns a Gateway with no provider attached.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		nonces: eth.NewNonceManager(),
		subs:   make(map[EventKind]map[int]func(Event)),
		speed:  eth.GasSpeedMedium,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.current.Store(&Snapshot{})
	return g
}

// Snapshot returns the current snapshot. It is never nil.
func (g *Gateway) Snapshot() *Snapshot {
	return g.current.Load()
}

// Account returns the current account, if a signer is attached.
func (g *Gateway) Account() (common.Address, bool) {
	return g.Snapshot().Account()
}

// NetworkID returns the current chain id, or 0 without a provider.
func (g *Gateway) NetworkID() uint64 {
	return g.Snapshot().NetworkID()
}

// Replace attaches p (nil detaches), resolves its account and network and
// swaps the snapshot. Subscribers are notified once per changed value,
// after the new snapshot is visible. On failure the old snapshot stays.
func (g *Gateway) Replace(ctx context.Context, p *Provider) error {
	g.replaceMu.Lock()
	events, err := g.replaceLocked(ctx, p)
	g.replaceMu.Unlock()
	if err != nil {
		return err
	}
	g.publish(events)
	return nil
}

// Resolve re-reads account and network from the attached provider, as
// after the signer switched accounts.
func (g *Gateway) Resolve(ctx context.Context) error {
	g.replaceMu.Lock()
	events, err := g.replaceLocked(ctx, g.provider)
	g.replaceMu.Unlock()
	if err != nil {
		return err
	}
	g.publish(events)
	return nil
}

func (g *Gateway) replaceLocked(ctx context.Context, p *Provider) ([]Event, error) {
	old := g.current.Load()
	next := &Snapshot{}

	if p != nil && p.Backend != nil {
		chainID, err := p.Backend.ChainID(ctx)
		if err != nil {
			return nil, etendaerr.WithDetails(etendaerr.WithCause(etendaerr.ErrNoProvider, err), map[string]string{
				"step": "resolve network",
			})
		}
		next.chainID = chainID
		next.networkID = chainID.Uint64()
		next.backend = p.Backend
		if p.Signer != nil {
			next.signer = p.Signer
			next.account = p.Signer.Account()
			next.hasAccount = true
		}
	}

	accountChanged := old.hasAccount != next.hasAccount || old.account != next.account
	networkChanged := old.networkID != next.networkID

	next.generation = old.generation
	if accountChanged || networkChanged {
		next.generation++
	}
	if networkChanged {
		g.nonces = eth.NewNonceManager()
	}
	if next.backend != nil {
		next.builder = &eth.Builder{
			Backend:       next.backend,
			ChainID:       next.chainID,
			Nonces:        g.nonces,
			Speed:         g.speed,
			FixedGasLimit: g.gasLimit,
		}
	}

	g.provider = p
	g.current.Store(next)

	var events []Event
	base := Event{
		Generation: next.generation,
		Account:    next.account,
		HasAccount: next.hasAccount,
		NetworkID:  next.networkID,
		Previous:   old,
	}
	if accountChanged {
		ev := base
		ev.Kind = AccountChanged
		events = append(events, ev)
	}
	if networkChanged {
		ev := base
		ev.Kind = NetworkChanged
		events = append(events, ev)
	}
	if len(events) > 0 {
		g.log.Info().
			Uint64("generation", next.generation).
			Uint64("network", next.networkID).
			Str("account", next.account.Hex()).
			Bool("account_changed", accountChanged).
			Bool("network_changed", networkChanged).
			Msg("gateway snapshot replaced")
	}
	return events, nil
}

// Subscribe registers fn for kind. The returned function unsubscribes and
// is safe to call more than once.
func (g *Gateway) Subscribe(kind EventKind, fn func(Event)) func() {
	g.subMu.Lock()
	id := g.nextSub
	g.nextSub++
	if g.subs[kind] == nil {
		g.subs[kind] = make(map[int]func(Event))
	}
	g.subs[kind][id] = fn
	g.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.subMu.Lock()
			delete(g.subs[kind], id)
			g.subMu.Unlock()
		})
	}
}

func (g *Gateway) publish(events []Event) {
	for _, ev := range events {
		g.subMu.Lock()
		handlers := make([]func(Event), 0, len(g.subs[ev.Kind]))
		for _, fn := range g.subs[ev.Kind] {
			handlers = append(handlers, fn)
		}
		g.subMu.Unlock()

		for _, fn := range handlers {
			fn(ev)
		}
	}
}

// ResetNonce drops local nonce tracking for account, as after a nonce conflict.
func (g *Gateway) ResetNonce(account common.Address) {
	g.replaceMu.Lock()
	nm := g.nonces
	g.replaceMu.Unlock()
	nm.Reset(account)
}
