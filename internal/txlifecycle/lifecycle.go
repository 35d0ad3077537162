// Package txlifecycle drives a prepared ledger write from signing to a
// single terminal outcome. Writes from one account are serialized; a write
// whose wallet snapshot went stale while queued is refused.
package txlifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/etenda/etenda/internal/contract"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/txerror"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// Defaults for Config.
const (
	DefaultTimeout       = 2 * time.Minute
	DefaultPollInterval  = 2 * time.Second
	DefaultConfirmations = 1

	// replayTimeout bounds the call that recovers a revert reason.
	replayTimeout = 15 * time.Second
)

var errReverted = errors.New("execution reverted")

// Gateway is the part of the chain gateway the lifecycle consults.
type Gateway interface {
	Snapshot() *gateway.Snapshot
	ResetNonce(account common.Address)
}

// Recorder receives one sample per finished operation.
type Recorder interface {
	RecordTransaction(op string, state string, d time.Duration)
}

// Config bounds the wait for inclusion.
type Config struct {
	Timeout      time.Duration
	PollInterval time.Duration
	// Confirmations is the block depth a receipt must reach. 0 and 1 both
	// accept the receipt's own block.
	Confirmations uint64
}

// DefaultConfig returns the default wait bounds.
func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		PollInterval:  DefaultPollInterval,
		Confirmations: DefaultConfirmations,
	}
}

// Outcome is the terminal result of one write.
type Outcome struct {
	ID        uuid.UUID
	Operation contract.Op
	State     State
	Handle    gateway.Handle
	Receipt   *types.Receipt
	Err       *etendaerr.EtendaError
	History   []Transition

	prepared *contract.Prepared
}

// Prepared returns the operation this outcome belongs to.
func (o *Outcome) Prepared() *contract.Prepared { return o.prepared }

// Broadcast reports whether a transaction left the process.
func (o *Outcome) Broadcast() bool { return o.Handle.Hash != (common.Hash{}) }

func (o *Outcome) advance(to State, at time.Time) error {
	if err := ValidateTransition(o.State, to); err != nil {
		return err
	}
	o.State = to
	o.History = append(o.History, Transition{State: to, At: at})
	return nil
}

// Lifecycle executes prepared writes.
type Lifecycle struct {
	gw          Gateway
	cfg         Config
	locks       *accountLocks
	log         zerolog.Logger
	recorder    Recorder
	now         func() time.Time
	onConfirmed func(ctx context.Context, o *Outcome)

	mu sync.Mutex
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(lc *Lifecycle) { lc.log = l } }

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option { return func(lc *Lifecycle) { lc.recorder = r } }

// WithClock sets the clock used for history timestamps.
func WithClock(now func() time.Time) Option { return func(lc *Lifecycle) { lc.now = now } }

// New creates a Lifecycle. Zero fields of cfg take their defaults.
func New(gw Gateway, cfg Config, opts ...Option) *Lifecycle {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Confirmations == 0 {
		cfg.Confirmations = DefaultConfirmations
	}
	lc := &Lifecycle{
		gw:    gw,
		cfg:   cfg,
		locks: newAccountLocks(),
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(lc)
	}
	return lc
}

// SetOnConfirmed registers a hook run after a write is confirmed, before
// Execute returns. It is how confirmed writes reach the read side; failed
// writes never call it.
func (l *Lifecycle) SetOnConfirmed(fn func(ctx context.Context, o *Outcome)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onConfirmed = fn
}

// Execute signs, broadcasts and waits for p. It always returns an outcome
// in a terminal state; the error is the outcome's error and is nil only
// when the write was confirmed.
func (l *Lifecycle) Execute(ctx context.Context, p *contract.Prepared) (*Outcome, error) {
	start := l.now()
	o := &Outcome{
		ID:        p.ID,
		Operation: p.Op,
		State:     StatePrepared,
		History:   []Transition{{State: StatePrepared, At: start}},
		prepared:  p,
	}
	log := l.log.With().Str("op_id", p.ID.String()).Str("op", string(p.Op)).Logger()

	l.run(ctx, o, p, log)

	if l.recorder != nil {
		l.recorder.RecordTransaction(string(p.Op), string(o.State), l.now().Sub(start))
	}
	ev := log.Info()
	if o.Err != nil {
		ev = log.Warn().Err(o.Err).Str("kind", string(o.Err.Kind))
	}
	ev.Str("state", string(o.State)).Str("tx", o.Handle.Hash.Hex()).Msg("transaction finished")

	if o.Err != nil {
		return o, o.Err
	}
	return o, nil
}

func (l *Lifecycle) run(ctx context.Context, o *Outcome, p *contract.Prepared, log zerolog.Logger) {
	release, err := l.locks.lock(ctx, p.From)
	if err != nil {
		l.finish(o, StateRejected, txerror.UserRejected(err))
		return
	}
	defer release()

	pinned := p.Snapshot.Generation()
	if current := l.gw.Snapshot().Generation(); current != pinned {
		l.finish(o, StateFailed, txerror.WalletChanged(pinned, current))
		return
	}
	if err := ctx.Err(); err != nil {
		l.finish(o, StateRejected, txerror.UserRejected(err))
		return
	}

	l.move(o, StateSubmitted)
	signed, err := p.Snapshot.Sign(ctx, p.Request)
	if err != nil {
		l.preBroadcastFailure(ctx, o, p, err)
		return
	}
	handle, err := p.Snapshot.Broadcast(ctx, signed)
	if err != nil {
		l.preBroadcastFailure(ctx, o, p, err)
		return
	}
	o.Handle = handle
	l.move(o, StatePending)
	log.Debug().Str("tx", handle.Hash.Hex()).Uint64("nonce", handle.Nonce).Msg("transaction broadcast")

	l.await(ctx, o, p, log)
	if o.State == StateConfirmed {
		l.mu.Lock()
		hook := l.onConfirmed
		l.mu.Unlock()
		if hook != nil {
			hook(ctx, o)
		}
	}
}

func (l *Lifecycle) preBroadcastFailure(ctx context.Context, o *Outcome, p *contract.Prepared, err error) {
	te := txerror.Translate(err)
	switch {
	case ctx.Err() != nil && te.Kind != etendaerr.KindUserRejected:
		l.finish(o, StateRejected, txerror.UserRejected(err))
	case te.Kind == etendaerr.KindUserRejected:
		l.finish(o, StateRejected, te)
	default:
		if te.Kind == etendaerr.KindNonceConflict {
			l.gw.ResetNonce(p.From)
		}
		l.finish(o, StateFailed, te)
	}
}

// await polls for the receipt until it reaches the configured depth, the
// timeout elapses or the caller gives up. The first poll is immediate.
func (l *Lifecycle) await(ctx context.Context, o *Outcome, p *contract.Prepared, log zerolog.Logger) {
	backend, err := p.Snapshot.Backend()
	if err != nil {
		l.finish(o, StateTimedOut, txerror.TimedOut(o.Handle.Hash))
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if receipt := l.poll(waitCtx, backend, o.Handle.Hash, log); receipt != nil {
			o.Receipt = receipt
			if receipt.Status == types.ReceiptStatusSuccessful {
				l.finish(o, StateConfirmed, nil)
				return
			}
			l.finish(o, StateReverted, l.revertReason(ctx, backend, p, receipt))
			return
		}
		select {
		case <-waitCtx.Done():
			l.finish(o, StateTimedOut, txerror.TimedOut(o.Handle.Hash))
			return
		case <-ticker.C:
		}
	}
}

// poll returns the receipt once it is deep enough. Node errors are
// treated like a missing receipt; polling has no side effects.
func (l *Lifecycle) poll(ctx context.Context, backend gateway.Backend, hash common.Hash, log zerolog.Logger) *types.Receipt {
	receipt, err := backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			log.Debug().Err(err).Msg("receipt poll failed")
		}
		return nil
	}
	if receipt == nil || receipt.BlockNumber == nil {
		return nil
	}
	if l.cfg.Confirmations <= 1 {
		return receipt
	}
	head, err := backend.BlockNumber(ctx)
	if err != nil {
		return nil
	}
	if head+1 < receipt.BlockNumber.Uint64()+l.cfg.Confirmations {
		return nil
	}
	return receipt
}

// revertReason replays the write at the block it was mined in to recover
// the ledger's reason.
func (l *Lifecycle) revertReason(ctx context.Context, backend gateway.Backend, p *contract.Prepared, receipt *types.Receipt) *etendaerr.EtendaError {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replayTimeout)
	defer cancel()

	to := p.Request.To
	_, err := backend.CallContract(rctx, ethereum.CallMsg{
		From:  p.From,
		To:    &to,
		Data:  p.Request.Data,
		Value: p.Request.Value,
	}, receipt.BlockNumber)
	if err == nil {
		return txerror.Translate(errReverted)
	}
	te := txerror.Translate(err)
	if te.Kind != etendaerr.KindContract {
		return txerror.Translate(errReverted)
	}
	return te
}

func (l *Lifecycle) move(o *Outcome, to State) {
	if err := o.advance(to, l.now()); err != nil {
		// Only reachable through a programming error in this package.
		panic(err)
	}
}

func (l *Lifecycle) finish(o *Outcome, to State, err *etendaerr.EtendaError) {
	l.move(o, to)
	if err != nil && o.Broadcast() && err.Details["tx"] == "" {
		var withTx *etendaerr.EtendaError
		if errors.As(etendaerr.WithDetails(err, map[string]string{"tx": o.Handle.Hash.Hex()}), &withTx) {
			err = withTx
		}
	}
	o.Err = err
}

// Receipt state of a transaction looked up by hash.
type Receipt struct {
	Hash          common.Hash
	State         State // pending, confirmed or reverted
	Receipt       *types.Receipt
	Confirmations uint64
}

// Status looks up hash on the current network. It has no side effects and
// may be called any number of times.
func (l *Lifecycle) Status(ctx context.Context, hash common.Hash) (*Receipt, error) {
	backend, err := l.gw.Snapshot().Backend()
	if err != nil {
		return nil, err
	}
	out := &Receipt{Hash: hash, State: StatePending}

	receipt, err := backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return out, nil
	}
	if err != nil {
		return nil, txerror.Translate(err)
	}
	out.Receipt = receipt
	out.State = StateConfirmed
	if receipt.Status != types.ReceiptStatusSuccessful {
		out.State = StateReverted
	}
	if head, err := backend.BlockNumber(ctx); err == nil && receipt.BlockNumber != nil && head >= receipt.BlockNumber.Uint64() {
		out.Confirmations = head - receipt.BlockNumber.Uint64() + 1
	}
	return out, nil
}
