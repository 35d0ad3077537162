package repository

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/etenda/etenda/internal/ledger"
)

// Watcher defaults.
const (
	DefaultWatchInterval = 15 * time.Second
	// maxBlockBatch bounds the block range of one log query.
	maxBlockBatch = 2000
)

// LogSource is the node surface the watcher polls.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// EventRecorder counts ledger events.
type EventRecorder interface {
	RecordLedgerEvent(kind string)
}

// Watcher follows ledger events and invalidates the views they touch.
type Watcher struct {
	src      LogSource
	contract common.Address
	repo     *Repository
	interval time.Duration
	log      zerolog.Logger
	recorder EventRecorder
	onEvent  func(ledger.Event)

	next    uint64 // next block to scan
	started bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WatchInterval sets the poll interval.
func WatchInterval(d time.Duration) WatcherOption { return func(w *Watcher) { w.interval = d } }

// WatchFrom starts scanning at block instead of the current head.
func WatchFrom(block uint64) WatcherOption {
	return func(w *Watcher) {
		w.next = block
		w.started = true
	}
}

// WatchLogger sets the logger.
func WatchLogger(l zerolog.Logger) WatcherOption { return func(w *Watcher) { w.log = l } }

// WatchRecorder sets the metrics sink.
func WatchRecorder(r EventRecorder) WatcherOption { return func(w *Watcher) { w.recorder = r } }

// OnEvent registers a callback for every decoded event.
func OnEvent(fn func(ledger.Event)) WatcherOption { return func(w *Watcher) { w.onEvent = fn } }

// NewWatcher creates a watcher for the ledger at contract.
func NewWatcher(src LogSource, contract common.Address, repo *Repository, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		src:      src,
		contract: contract,
		repo:     repo,
		interval: DefaultWatchInterval,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Poll scans the blocks since the previous poll and applies their events.
// The first poll without WatchFrom only records the head.
func (w *Watcher) Poll(ctx context.Context) ([]ledger.Event, error) {
	head, err := w.src.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting head block: %w", err)
	}
	if !w.started {
		w.next = head + 1
		w.started = true
		return nil, nil
	}

	var events []ledger.Event
	for w.next <= head {
		to := w.next + maxBlockBatch - 1
		if to > head {
			to = head
		}
		logs, err := w.src.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(w.next),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{w.contract},
			Topics:    [][]common.Hash{ledger.Topics()},
		})
		if err != nil {
			return events, fmt.Errorf("getting logs for blocks %d-%d: %w", w.next, to, err)
		}
		for _, l := range logs {
			ev, err := ledger.ParseLog(l)
			if err != nil {
				w.log.Debug().Err(err).Str("tx", l.TxHash.Hex()).Msg("skipping log")
				continue
			}
			w.apply(*ev)
			events = append(events, *ev)
		}
		w.next = to + 1
	}
	return events, nil
}

// Run polls until ctx is done. Poll errors are logged and retried on the
// next tick.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.log.Warn().Err(err).Msg("ledger watch poll failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) apply(ev ledger.Event) {
	if w.recorder != nil {
		w.recorder.RecordLedgerEvent(string(ev.Kind))
	}
	w.log.Info().
		Str("event", string(ev.Kind)).
		Str("tender_id", ev.TenderID.String()).
		Uint64("block", ev.BlockNumber).
		Msg("ledger event")

	switch ev.Kind {
	case ledger.EventTenderCreated:
		w.repo.InvalidateKind(ViewRecent)
		w.repo.Invalidate(UserTenders(ev.Account))
	case ledger.EventBidSubmitted:
		w.repo.Invalidate(TenderBids(ev.TenderID), UserBids(ev.Account))
	case ledger.EventTenderAwarded, ledger.EventTenderClosed:
		w.invalidateOwner(ev.TenderID)
		w.repo.InvalidateTender(ev.TenderID)
		if ev.Kind == ledger.EventTenderAwarded {
			w.repo.Invalidate(UserBids(ev.Account))
		}
	}
	if w.onEvent != nil {
		w.onEvent(ev)
	}
}

// invalidateOwner marks the owner's tender list stale. The event does not
// name the owner, so it comes from the cached tender when there is one.
func (w *Watcher) invalidateOwner(id *big.Int) {
	if val, ok := w.repo.Cached(Tender(id)); ok && val.Tender != nil {
		w.repo.Invalidate(UserTenders(val.Tender.Owner))
		return
	}
	w.repo.InvalidateKind(ViewUserTenders)
}
