// Package tender orchestrates user intents against the ledger: each write is
// validated and prepared by the contract client, run through the transaction
// lifecycle, and on confirmation the views it touched are refreshed. Reads go
// through the repository.
package tender

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/contract"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/ledger"
	"github.com/etenda/etenda/internal/repository"
	domain "github.com/etenda/etenda/internal/tender"
	"github.com/etenda/etenda/internal/txerror"
	"github.com/etenda/etenda/internal/txlifecycle"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// refreshTimeout bounds the post-confirmation view refresh.
const refreshTimeout = 30 * time.Second

// Config holds the configuration for the tender service.
type Config struct {
	Wallet     Wallet
	Book       chain.AddressBook
	Executor   Executor
	Repository *repository.Repository
	Contract   []contract.Option
	Logger     zerolog.Logger
}

type binding struct {
	client     *contract.Client
	err        error
	generation uint64
}

// Service is safe for concurrent use.
type Service struct {
	wallet Wallet
	book   chain.AddressBook
	exec   Executor
	repo   *repository.Repository
	opts   []contract.Option
	log    zerolog.Logger

	bound  atomic.Pointer[binding]
	unsubs []func()
}

// NewService creates a tender service bound to the wallet's current snapshot.
// It rebinds whenever the account or network changes.
func NewService(cfg *Config) *Service {
	s := &Service{
		wallet: cfg.Wallet,
		book:   cfg.Book,
		exec:   cfg.Executor,
		repo:   cfg.Repository,
		opts:   cfg.Contract,
		log:    cfg.Logger,
	}
	if s.book == nil {
		s.book = chain.DefaultAddressBook()
	}
	if s.repo == nil {
		s.repo = repository.New(nil, 0)
	}
	s.bind(s.wallet.Snapshot())

	rebind := func(gateway.Event) { s.bind(s.wallet.Snapshot()) }
	s.unsubs = append(s.unsubs,
		s.wallet.Subscribe(gateway.AccountChanged, rebind),
		s.wallet.Subscribe(gateway.NetworkChanged, rebind),
	)
	s.exec.SetOnConfirmed(s.onConfirmed)
	return s
}

// Close stops following wallet changes and waits for pending cache writes.
func (s *Service) Close() {
	for _, fn := range s.unsubs {
		fn()
	}
	s.repo.Close()
}

// Repository exposes the read side, for the event watcher.
func (s *Service) Repository() *repository.Repository { return s.repo }

func (s *Service) bind(snap *gateway.Snapshot) *binding {
	client, err := contract.New(snap, s.book, s.opts...)
	b := &binding{client: client, err: err, generation: snap.Generation()}
	s.bound.Store(b)

	if err != nil {
		s.repo.SetReader(failingReader{err: err}, snap.NetworkID())
		s.log.Debug().Err(err).Uint64("network", snap.NetworkID()).Msg("tender service unbound")
		return b
	}
	s.repo.SetReader(client, snap.NetworkID())
	s.log.Debug().
		Uint64("network", snap.NetworkID()).
		Str("contract", client.Address().Hex()).
		Msg("tender service bound")
	return b
}

// client returns the contract client for the current snapshot.
func (s *Service) client() (*contract.Client, error) {
	b := s.bound.Load()
	if snap := s.wallet.Snapshot(); b.generation != snap.Generation() {
		b = s.bind(snap)
	}
	return b.client, b.err
}

// Contract returns the ledger address on the current network.
func (s *Service) Contract() (common.Address, error) {
	c, err := s.client()
	if err != nil {
		return common.Address{}, txerror.Translate(err)
	}
	return c.Address(), nil
}

// PostTender creates a tender. The new id is read from the receipt.
func (s *Service) PostTender(ctx context.Context, req *PostTenderRequest) (*Result, error) {
	return s.write(ctx, func(c *contract.Client) (*contract.Prepared, error) {
		return c.PostTender(ctx, req.Title, req.Description, req.Budget, req.Deadline)
	})
}

// SubmitBid places a bid on an open tender.
func (s *Service) SubmitBid(ctx context.Context, req *SubmitBidRequest) (*Result, error) {
	return s.write(ctx, func(c *contract.Client) (*contract.Prepared, error) {
		return c.SubmitBid(ctx, req.TenderID, req.Amount, req.Proposal)
	})
}

// AwardTender selects the winning bid.
func (s *Service) AwardTender(ctx context.Context, req *AwardTenderRequest) (*Result, error) {
	return s.write(ctx, func(c *contract.Client) (*contract.Prepared, error) {
		return c.AwardTender(ctx, req.TenderID, req.BidIndex)
	})
}

// CloseTender closes an open tender without a winner.
func (s *Service) CloseTender(ctx context.Context, req *CloseTenderRequest) (*Result, error) {
	return s.write(ctx, func(c *contract.Client) (*contract.Prepared, error) {
		return c.CloseTender(ctx, req.TenderID)
	})
}

func (s *Service) write(ctx context.Context, prepare func(c *contract.Client) (*contract.Prepared, error)) (*Result, error) {
	c, err := s.client()
	if err != nil {
		return nil, txerror.Translate(err)
	}
	p, err := prepare(c)
	if err != nil {
		return nil, txerror.Translate(err)
	}
	s.log.Debug().Str("op_id", p.ID.String()).Msg(p.Summary())

	o, err := s.exec.Execute(ctx, p)
	res := &Result{Outcome: o, TenderID: p.TenderID}
	if err != nil {
		return res, txerror.Translate(err)
	}
	if p.Op == contract.OpPostTender && o.Receipt != nil {
		if ev, ok := ledger.FindTenderCreated(o.Receipt.Logs, p.Contract); ok {
			res.TenderID = ev.TenderID
		}
	}
	return res, nil
}

// onConfirmed refreshes the views a confirmed write touched. A view that
// cannot be refreshed is left stale for the next read.
func (s *Service) onConfirmed(ctx context.Context, o *txlifecycle.Outcome) {
	p := o.Prepared()
	if p == nil {
		return
	}
	views := touched(p, s.repo.Views(repository.ViewRecent))
	if len(views) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	defer cancel()

	// reads already in flight predate the write; refresh past them
	s.repo.Invalidate(views...)
	var g errgroup.Group
	for _, v := range views {
		g.Go(func() error {
			if _, err := s.repo.Refresh(ctx, v); err != nil {
				s.log.Warn().Err(err).Str("view", v.String()).Msg("view refresh failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// touched lists the views a write changes. recent is every cached recent view.
func touched(p *contract.Prepared, recent []repository.View) []repository.View {
	var views []repository.View
	switch p.Op {
	case contract.OpPostTender:
		views = append(views, recent...)
		views = append(views, repository.UserTenders(p.From))
	case contract.OpSubmitBid:
		views = append(views,
			repository.TenderBids(p.TenderID),
			repository.UserBids(p.From),
			repository.Tender(p.TenderID),
		)
	case contract.OpAwardTender, contract.OpCloseTender:
		views = append(views,
			repository.Tender(p.TenderID),
			repository.TenderBids(p.TenderID),
		)
		views = append(views, recent...)
		views = append(views, repository.UserTenders(p.Owner))
		for _, b := range p.Bidders {
			views = append(views, repository.UserBids(b))
		}
	}
	return views
}

// Tender returns one tender.
func (s *Service) Tender(ctx context.Context, id string) (*domain.Tender, error) {
	tenderID, err := contract.ParseTenderID(id)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.Tender(ctx, tenderID)
	return t, translate(err)
}

// TenderWithBids returns a tender together with its bids.
func (s *Service) TenderWithBids(ctx context.Context, id string) (*domain.Tender, []domain.Bid, error) {
	tenderID, err := contract.ParseTenderID(id)
	if err != nil {
		return nil, nil, err
	}
	var (
		t    *domain.Tender
		bids []domain.Bid
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.repo.Tender(gctx, tenderID)
		return err
	})
	g.Go(func() error {
		var err error
		bids, err = s.repo.TenderBids(gctx, tenderID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, translate(err)
	}
	return t, bids, nil
}

// RecentTenders returns up to limit of the newest tenders.
func (s *Service) RecentTenders(ctx context.Context, limit int) ([]*domain.Tender, error) {
	tenders, err := s.repo.Recent(ctx, limit)
	return tenders, translate(err)
}

// UserTenders returns the tenders owned by account.
func (s *Service) UserTenders(ctx context.Context, account common.Address) ([]*domain.Tender, error) {
	tenders, err := s.repo.UserTenders(ctx, account)
	return tenders, translate(err)
}

// MyTenders returns the tenders owned by the connected account.
func (s *Service) MyTenders(ctx context.Context) ([]*domain.Tender, error) {
	account, err := s.Account()
	if err != nil {
		return nil, err
	}
	return s.UserTenders(ctx, account)
}

// TenderBids returns the bids on tender id.
func (s *Service) TenderBids(ctx context.Context, id string) ([]domain.Bid, error) {
	tenderID, err := contract.ParseTenderID(id)
	if err != nil {
		return nil, err
	}
	bids, err := s.repo.TenderBids(ctx, tenderID)
	return bids, translate(err)
}

// UserBids returns the bids placed by account.
func (s *Service) UserBids(ctx context.Context, account common.Address) ([]domain.Bid, error) {
	bids, err := s.repo.UserBids(ctx, account)
	return bids, translate(err)
}

// MyBids returns the bids placed by the connected account.
func (s *Service) MyBids(ctx context.Context) ([]domain.Bid, error) {
	account, err := s.Account()
	if err != nil {
		return nil, err
	}
	return s.UserBids(ctx, account)
}

// Dashboard returns the stats of account.
func (s *Service) Dashboard(ctx context.Context, account common.Address) (domain.Stats, error) {
	stats, err := s.repo.Dashboard(ctx, account)
	return stats, translate(err)
}

// TenderCount reads the number of tenders straight from the ledger.
func (s *Service) TenderCount(ctx context.Context) (*big.Int, error) {
	c, err := s.client()
	if err != nil {
		return nil, txerror.Translate(err)
	}
	n, err := c.GetTenderCount(ctx)
	return n, translate(err)
}

// TxStatus reports where a previously broadcast transaction stands.
func (s *Service) TxStatus(ctx context.Context, hash common.Hash) (*txlifecycle.Receipt, error) {
	r, err := s.exec.Status(ctx, hash)
	return r, translate(err)
}

// Account returns the connected account, failing when no signer is attached.
func (s *Service) Account() (common.Address, error) {
	account, ok := s.wallet.Snapshot().Account()
	if !ok {
		return common.Address{}, etendaerr.WithSuggestion(
			etendaerr.WithDetails(etendaerr.ErrNoProvider, map[string]string{"missing": "signer"}),
			"configure a key with --key or ETENDA_KEY, or pass an address")
	}
	return account, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	return txerror.Translate(err)
}

// failingReader stands in for the contract client while none can be bound.
type failingReader struct{ err error }

func (f failingReader) GetTenderDetails(context.Context, *big.Int) (*domain.Tender, error) {
	return nil, f.err
}

func (f failingReader) GetRecentTenders(context.Context, int) ([]*domain.Tender, error) {
	return nil, f.err
}

func (f failingReader) GetUserTenders(context.Context, common.Address) ([]*domain.Tender, error) {
	return nil, f.err
}

func (f failingReader) GetUserBids(context.Context, common.Address) ([]domain.Bid, error) {
	return nil, f.err
}

func (f failingReader) GetTenderBids(context.Context, *big.Int) ([]domain.Bid, error) {
	return nil, f.err
}
