// Package contract is the typed client for the tender ledger: reads decode
// straight into the domain model, writes are validated locally and returned
// as prepared operations for the transaction lifecycle.
package contract

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/ledger"
	"github.com/etenda/etenda/internal/tender"
	"github.com/etenda/etenda/internal/txerror"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// maxParallelReads bounds concurrent detail lookups for id lists.
const maxParallelReads = 8

// Client binds one snapshot to the ledger deployment on its network.
type Client struct {
	snap     *gateway.Snapshot
	backend  gateway.Backend
	address  common.Address
	now      func() time.Time
	location *time.Location
}

// Option configures a Client.
type Option func(*Client)

// WithClock injects the time source used by validation.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLocation sets the zone used for deadlines without an offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.location = loc }
}

// New resolves the ledger address for the snapshot's network.
func New(snap *gateway.Snapshot, book chain.AddressBook, opts ...Option) (*Client, error) {
	backend, err := snap.Backend()
	if err != nil {
		return nil, err
	}
	addr, ok := book.Resolve(snap.NetworkID())
	if !ok {
		return nil, etendaerr.WithSuggestion(txerror.UnsupportedNetwork(snap.NetworkID()),
			"use base or base-sepolia, or set a contract address for this network in the config")
	}

	c := &Client{
		snap:     snap,
		backend:  backend,
		address:  addr,
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address returns the ledger contract address.
func (c *Client) Address() common.Address { return c.address }

// Snapshot returns the snapshot the client is bound to.
func (c *Client) Snapshot() *gateway.Snapshot { return c.snap }

func (c *Client) call(ctx context.Context, method string, args ...any) ([]byte, error) {
	data, err := ledger.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	to := c.address
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, txerror.Translate(err)
	}
	return out, nil
}

// GetTenderDetails reads one tender. Unknown ids fail with a not-found error.
func (c *Client) GetTenderDetails(ctx context.Context, id *big.Int) (*tender.Tender, error) {
	out, err := c.call(ctx, ledger.MethodGetTenderDetails, id)
	if err != nil {
		if etendaerr.ReasonOf(err) == string(ledger.TenderNotExists) {
			return nil, txerror.TenderNotFound(id)
		}
		return nil, err
	}
	rec, err := ledger.UnpackTender(out)
	if err != nil {
		return nil, err
	}
	if rec.Owner == (common.Address{}) {
		return nil, txerror.TenderNotFound(id)
	}
	return tender.FromRecord(rec), nil
}

// GetRecentTenders returns up to limit of the newest tenders.
func (c *Client) GetRecentTenders(ctx context.Context, limit int) ([]*tender.Tender, error) {
	if limit < 0 {
		limit = 0
	}
	out, err := c.call(ctx, ledger.MethodGetRecentTenders, big.NewInt(int64(limit)))
	if err != nil {
		return nil, err
	}
	recs, err := ledger.UnpackTenders(out)
	if err != nil {
		return nil, err
	}
	tenders := make([]*tender.Tender, 0, len(recs))
	for _, r := range recs {
		if r.Owner == (common.Address{}) {
			continue
		}
		tenders = append(tenders, tender.FromRecord(r))
	}
	return tenders, nil
}

// GetUserTenders returns the tenders owned by account, in ledger order.
func (c *Client) GetUserTenders(ctx context.Context, account common.Address) ([]*tender.Tender, error) {
	out, err := c.call(ctx, ledger.MethodGetUserTenders, account)
	if err != nil {
		return nil, err
	}
	ids, err := ledger.UnpackIDs(out)
	if err != nil {
		return nil, err
	}

	tenders := make([]*tender.Tender, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, id := range ids {
		g.Go(func() error {
			t, err := c.GetTenderDetails(gctx, id)
			if err != nil {
				return err
			}
			tenders[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tenders, nil
}

// GetUserBids returns the bids placed by account. The ledger does not
// report tender ids for these.
func (c *Client) GetUserBids(ctx context.Context, account common.Address) ([]tender.Bid, error) {
	out, err := c.call(ctx, ledger.MethodGetUserBids, account)
	if err != nil {
		return nil, err
	}
	recs, err := ledger.UnpackBids(ledger.MethodGetUserBids, out)
	if err != nil {
		return nil, err
	}
	bids := make([]tender.Bid, len(recs))
	for i, r := range recs {
		bids[i] = tender.BidFromRecord(nil, i, r)
	}
	return bids, nil
}

// GetTenderBids returns the bids on tender id, in submission order.
func (c *Client) GetTenderBids(ctx context.Context, id *big.Int) ([]tender.Bid, error) {
	out, err := c.call(ctx, ledger.MethodGetTenderBids, id)
	if err != nil {
		if etendaerr.ReasonOf(err) == string(ledger.TenderNotExists) {
			return nil, txerror.TenderNotFound(id)
		}
		return nil, err
	}
	recs, err := ledger.UnpackBids(ledger.MethodGetTenderBids, out)
	if err != nil {
		return nil, err
	}
	bids := make([]tender.Bid, len(recs))
	for i, r := range recs {
		bids[i] = tender.BidFromRecord(id, i, r)
	}
	return bids, nil
}

// GetTenderCount returns the number of tenders ever posted.
func (c *Client) GetTenderCount(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, ledger.MethodGetTenderCount)
	if err != nil {
		return nil, err
	}
	return ledger.UnpackUint(ledger.MethodGetTenderCount, out)
}

// tenderWithBids reads a tender and its bids concurrently.
func (c *Client) tenderWithBids(ctx context.Context, id *big.Int) (*tender.Tender, []tender.Bid, error) {
	var (
		t    *tender.Tender
		bids []tender.Bid
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = c.GetTenderDetails(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		bids, err = c.GetTenderBids(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return t, bids, nil
}
