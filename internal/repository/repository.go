// Package repository caches ledger reads as whole-view snapshots. A view is
// replaced atomically on refresh, concurrent refreshes of one view share a
// single ledger read, and invalidation only marks a view stale.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/etenda/etenda/internal/tender"
)

// DefaultTTL is how long a view is served before it is refreshed.
const DefaultTTL = 5 * time.Minute

// storeTimeout bounds background L2 writes and deletes.
const storeTimeout = 5 * time.Second

// Reader is the ledger read surface. Implemented by contract.Client.
type Reader interface {
	GetTenderDetails(ctx context.Context, id *big.Int) (*tender.Tender, error)
	GetRecentTenders(ctx context.Context, limit int) ([]*tender.Tender, error)
	GetUserTenders(ctx context.Context, account common.Address) ([]*tender.Tender, error)
	GetUserBids(ctx context.Context, account common.Address) ([]tender.Bid, error)
	GetTenderBids(ctx context.Context, id *big.Int) ([]tender.Bid, error)
}

// Recorder counts cache hits and misses per view kind.
type Recorder interface {
	RecordCacheHit(view string)
	RecordCacheMiss(view string)
}

type entry struct {
	value atomic.Pointer[Value]
	stale atomic.Bool
	// epoch counts invalidations. Refreshes are keyed by it, so one that
	// raced an invalidation is neither joined nor cached.
	epoch atomic.Uint64
}

type source struct {
	reader  Reader
	network uint64
}

// Repository is the read side. It is safe for concurrent use.
type Repository struct {
	src      atomic.Pointer[source]
	store    Store
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
	recorder Recorder

	mu      sync.Mutex
	entries map[View]*entry
	group   singleflight.Group
	pending sync.WaitGroup
}

// Option configures a Repository.
type Option func(*Repository)

// WithStore adds a shared second-level store.
func WithStore(s Store) Option { return func(r *Repository) { r.store = s } }

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option { return func(r *Repository) { r.ttl = d } }

// WithClock sets the time source used for staleness.
func WithClock(now func() time.Time) Option { return func(r *Repository) { r.now = now } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(r *Repository) { r.log = l } }

// WithRecorder sets the metrics sink.
func WithRecorder(rec Recorder) Option { return func(r *Repository) { r.recorder = rec } }

// New creates a Repository reading from reader on network.
func New(reader Reader, network uint64, opts ...Option) *Repository {
	r := &Repository{
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     zerolog.Nop(),
		entries: make(map[View]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.src.Store(&source{reader: reader, network: network})
	return r
}

// SetReader switches to a new reader, as after a wallet change. Cached
// views are dropped when the network changes.
func (r *Repository) SetReader(reader Reader, network uint64) {
	prev := r.src.Swap(&source{reader: reader, network: network})
	if prev == nil || prev.network != network {
		r.Reset()
	}
}

// Views returns the cached views of kind.
func (r *Repository) Views(kind ViewKind) []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []View
	for v := range r.entries {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// Reset drops every cached view.
func (r *Repository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[View]*entry)
}

// Close waits for background store updates to finish.
func (r *Repository) Close() {
	r.pending.Wait()
}

func (r *Repository) entry(v View) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[v]
	if !ok {
		e = &entry{}
		r.entries[v] = e
	}
	return e
}

func (r *Repository) storeKey(network uint64, v View) string {
	return "etenda:" + strconv.FormatUint(network, 10) + ":" + v.String()
}

// Get returns the cached view, refreshing it when missing, stale or older
// than the TTL. A missing view is looked up in the store before the ledger.
func (r *Repository) Get(ctx context.Context, v View) (*Value, error) {
	e := r.entry(v)
	if val := e.value.Load(); val != nil && !e.stale.Load() && r.now().Sub(val.FetchedAt) < r.ttl {
		r.hit(v)
		return val, nil
	}
	r.miss(v)

	if e.value.Load() == nil && !e.stale.Load() {
		if val, ok := r.fromStore(ctx, v); ok {
			e.value.Store(val)
			return val, nil
		}
	}
	return r.Refresh(ctx, v)
}

// Refresh reads v from the ledger and replaces the cached snapshot whole.
// Concurrent refreshes of one view share a single read, unless the view was
// invalidated in between: a refresh never joins a read that started before
// the latest invalidation.
func (r *Repository) Refresh(ctx context.Context, v View) (*Value, error) {
	src := r.src.Load()
	key := r.storeKey(src.network, v)
	e := r.entry(v)
	epoch := e.epoch.Load()
	flight := key + "#" + strconv.FormatUint(epoch, 10)

	out, err, _ := r.group.Do(flight, func() (any, error) {
		val, err := r.fetch(ctx, src.reader, v)
		if err != nil {
			return nil, err
		}
		// The network changed or the view was invalidated while fetching;
		// the value is handed back but not cached.
		if r.src.Load().network != src.network || e.epoch.Load() != epoch {
			return val, nil
		}
		e.value.Store(val)
		e.stale.Store(false)
		// an invalidation that landed during the store wins
		if e.epoch.Load() != epoch {
			e.stale.Store(true)
			return val, nil
		}
		r.toStore(key, val)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*Value), nil
}

func (r *Repository) fetch(ctx context.Context, reader Reader, v View) (*Value, error) {
	val := &Value{}
	var err error
	switch v.Kind {
	case ViewRecent:
		limit, convErr := strconv.Atoi(v.Param)
		if convErr != nil {
			return nil, fmt.Errorf("recent view: %w", convErr)
		}
		val.Tenders, err = reader.GetRecentTenders(ctx, limit)
	case ViewUserTenders:
		val.Tenders, err = reader.GetUserTenders(ctx, common.HexToAddress(v.Param))
	case ViewUserBids:
		val.Bids, err = reader.GetUserBids(ctx, common.HexToAddress(v.Param))
	case ViewTenderBids, ViewTender:
		id, ok := new(big.Int).SetString(v.Param, 10)
		if !ok {
			return nil, fmt.Errorf("%s view: bad tender id %q", v.Kind, v.Param)
		}
		if v.Kind == ViewTender {
			val.Tender, err = reader.GetTenderDetails(ctx, id)
		} else {
			val.Bids, err = reader.GetTenderBids(ctx, id)
		}
	default:
		return nil, fmt.Errorf("unknown view %q", v.Kind)
	}
	if err != nil {
		return nil, err
	}
	val.FetchedAt = r.now()
	return val, nil
}

func (r *Repository) fromStore(ctx context.Context, v View) (*Value, bool) {
	if r.store == nil {
		return nil, false
	}
	data, ok, err := r.store.Get(ctx, r.storeKey(r.src.Load().network, v))
	if err != nil {
		r.log.Debug().Err(err).Str("view", v.String()).Msg("cache store read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var val Value
	if err := json.Unmarshal(data, &val); err != nil {
		r.log.Debug().Err(err).Str("view", v.String()).Msg("discarding unreadable cached view")
		return nil, false
	}
	if r.now().Sub(val.FetchedAt) >= r.ttl {
		return nil, false
	}
	return &val, true
}

func (r *Repository) toStore(key string, val *Value) {
	if r.store == nil {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		r.log.Debug().Err(err).Str("key", key).Msg("encoding view for store")
		return
	}
	r.background(func(ctx context.Context) error { return r.store.Set(ctx, key, data, r.ttl) })
}

func (r *Repository) background(fn func(ctx context.Context) error) {
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.log.Debug().Err(err).Msg("cache store update failed")
		}
	}()
}

func (r *Repository) hit(v View) {
	if r.recorder != nil {
		r.recorder.RecordCacheHit(string(v.Kind))
	}
}

func (r *Repository) miss(v View) {
	if r.recorder != nil {
		r.recorder.RecordCacheMiss(string(v.Kind))
	}
}

// Invalidate marks views stale without blocking; the next read of each
// refreshes from the ledger. Store copies are deleted in the background.
func (r *Repository) Invalidate(views ...View) {
	if len(views) == 0 {
		return
	}
	network := r.src.Load().network
	keys := make([]string, 0, len(views))
	for _, v := range views {
		e := r.entry(v)
		e.epoch.Add(1)
		e.stale.Store(true)
		keys = append(keys, r.storeKey(network, v))
	}
	if r.store != nil {
		r.background(func(ctx context.Context) error { return r.store.Delete(ctx, keys...) })
	}
}

// InvalidateKind marks every cached view of kind stale.
func (r *Repository) InvalidateKind(kind ViewKind) {
	r.Invalidate(r.Views(kind)...)
}

// InvalidateTender marks the tender, its bids and every recent view stale.
func (r *Repository) InvalidateTender(id *big.Int) {
	r.Invalidate(Tender(id), TenderBids(id))
	r.InvalidateKind(ViewRecent)
}

// InvalidateAccount marks the account's tenders and bids stale.
func (r *Repository) InvalidateAccount(account common.Address) {
	r.Invalidate(UserTenders(account), UserBids(account))
}

// Cached returns the current snapshot of v without any ledger access.
func (r *Repository) Cached(v View) (*Value, bool) {
	r.mu.Lock()
	e, ok := r.entries[v]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	val := e.value.Load()
	return val, val != nil
}

// Recent returns up to limit of the newest tenders.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*tender.Tender, error) {
	val, err := r.Get(ctx, Recent(limit))
	if err != nil {
		return nil, err
	}
	return val.Tenders, nil
}

// UserTenders returns the tenders owned by account.
func (r *Repository) UserTenders(ctx context.Context, account common.Address) ([]*tender.Tender, error) {
	val, err := r.Get(ctx, UserTenders(account))
	if err != nil {
		return nil, err
	}
	return val.Tenders, nil
}

// UserBids returns the bids placed by account.
func (r *Repository) UserBids(ctx context.Context, account common.Address) ([]tender.Bid, error) {
	val, err := r.Get(ctx, UserBids(account))
	if err != nil {
		return nil, err
	}
	return val.Bids, nil
}

// TenderBids returns the bids on tender id.
func (r *Repository) TenderBids(ctx context.Context, id *big.Int) ([]tender.Bid, error) {
	val, err := r.Get(ctx, TenderBids(id))
	if err != nil {
		return nil, err
	}
	return val.Bids, nil
}

// Tender returns one tender.
func (r *Repository) Tender(ctx context.Context, id *big.Int) (*tender.Tender, error) {
	val, err := r.Get(ctx, Tender(id))
	if err != nil {
		return nil, err
	}
	return val.Tender, nil
}

// Dashboard computes the account's stats from its tender and bid views,
// loading both concurrently.
func (r *Repository) Dashboard(ctx context.Context, account common.Address) (tender.Stats, error) {
	var (
		tenders []*tender.Tender
		bids    []tender.Bid
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tenders, err = r.UserTenders(gctx, account)
		return err
	})
	g.Go(func() error {
		var err error
		bids, err = r.UserBids(gctx, account)
		return err
	})
	if err := g.Wait(); err != nil {
		return tender.Stats{}, err
	}
	return tender.ComputeStats(tenders, bids), nil
}
