package contract_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/chain/chaintest"
	"github.com/etenda/etenda/internal/contract"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/ledger"
	"github.com/etenda/etenda/internal/ledger/ledgertest"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

//nolint:gochecknoglobals // test fixtures
var (
	ledgerAddr = common.HexToAddress("0x7e767A270111a8957FCc69ee3ea95bD0c9F67708")
	ownerAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bidderA    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	bidderB    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	fixedNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	oneToken   = big.NewInt(1_000_000_000_000_000_000)
)

type fixture struct {
	backend *chaintest.Backend
	ledger  *ledgertest.Ledger
	signer  *chaintest.Signer
	client  *contract.Client
}

func newFixture(t *testing.T, withSigner bool) *fixture {
	t.Helper()

	f := &fixture{
		backend: chaintest.NewBackend(chain.BaseSepolia),
		ledger:  ledgertest.New(ledgerAddr),
	}
	f.ledger.Now = func() time.Time { return fixedNow }
	f.ledger.Attach(f.backend)

	p := &gateway.Provider{Backend: f.backend}
	if withSigner {
		f.signer = chaintest.NewSigner()
		p.Signer = f.signer
	}
	g := gateway.New()
	require.NoError(t, g.Replace(context.Background(), p))

	c, err := contract.New(g.Snapshot(), chain.DefaultAddressBook(),
		contract.WithClock(func() time.Time { return fixedNow }),
		contract.WithLocation(time.UTC))
	require.NoError(t, err)
	f.client = c
	return f
}

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), oneToken)
}

func (f *fixture) openTender(owner common.Address, budget int64) *big.Int {
	return f.ledger.AddTender(owner, "Road repair", "Resurface 2km", tokens(budget), fixedNow.Add(48*time.Hour))
}

func TestNew_UnsupportedNetwork(t *testing.T) {
	t.Parallel()

	g := gateway.New()
	require.NoError(t, g.Replace(context.Background(), &gateway.Provider{Backend: chaintest.NewBackend(chain.EthereumMainnet)}))

	_, err := contract.New(g.Snapshot(), chain.DefaultAddressBook())
	require.ErrorIs(t, err, etendaerr.ErrUnsupportedNetwork)
}

func TestNew_NoProvider(t *testing.T) {
	t.Parallel()

	_, err := contract.New(gateway.New().Snapshot(), chain.DefaultAddressBook())
	require.ErrorIs(t, err, etendaerr.ErrNoProvider)
}

func TestNew_ResolvesAddressForNetwork(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	assert.Equal(t, ledgerAddr, f.client.Address())
	assert.Equal(t, chain.BaseSepolia, f.client.Snapshot().NetworkID())
}

func TestGetTenderDetails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	id := f.openTender(ownerAddr, 10)

	got, err := f.client.GetTenderDetails(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ID.Cmp(id))
	assert.Equal(t, ownerAddr, got.Owner)
	assert.Equal(t, "Road repair", got.Title)
	assert.Equal(t, 0, got.Budget.Cmp(tokens(10)))
	assert.True(t, got.Deadline.Equal(fixedNow.Add(48*time.Hour)))

	_, err = f.client.GetTenderDetails(context.Background(), big.NewInt(99))
	require.ErrorIs(t, err, etendaerr.ErrTenderNotFound)
	assert.Equal(t, 0, f.signerCount())
}

func (f *fixture) signerCount() int {
	if f.signer == nil {
		return 0
	}
	return f.signer.Signed()
}

func TestGetRecentTenders_NewestFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	for i := 0; i < 4; i++ {
		f.openTender(ownerAddr, int64(i+1))
	}

	got, err := f.client.GetRecentTenders(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(4), got[0].ID.Int64())
	assert.Equal(t, int64(2), got[2].ID.Int64())

	none, err := f.client.GetRecentTenders(context.Background(), -1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetUserTenders_PreservesLedgerOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	first := f.openTender(ownerAddr, 1)
	f.openTender(bidderA, 2)
	second := f.openTender(ownerAddr, 3)

	got, err := f.client.GetUserTenders(context.Background(), ownerAddr)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].ID.Cmp(first))
	assert.Equal(t, 0, got[1].ID.Cmp(second))
}

func TestBidsAndCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	id := f.openTender(ownerAddr, 10)
	f.ledger.AddBid(id, bidderA, tokens(4), "fast")
	f.ledger.AddBid(id, bidderB, tokens(5), "cheap")

	bids, err := f.client.GetTenderBids(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, bidderB, bids[1].Bidder)
	assert.Equal(t, 1, bids[1].Index)
	assert.Equal(t, 0, bids[1].TenderID.Cmp(id))

	mine, err := f.client.GetUserBids(context.Background(), bidderA)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Nil(t, mine[0].TenderID)
	assert.Equal(t, "fast", mine[0].Proposal)

	count, err := f.client.GetTenderCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Int64())

	_, err = f.client.GetTenderBids(context.Background(), big.NewInt(7))
	require.ErrorIs(t, err, etendaerr.ErrTenderNotFound)
}

func TestPostTender(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	p, err := f.client.PostTender(context.Background(), "  Bridge  ", "Steel bridge", "12.5", "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, contract.OpPostTender, p.Op)
	assert.Equal(t, f.signer.Account(), p.From)
	assert.Equal(t, f.signer.Account(), p.Owner)
	assert.Equal(t, ledgerAddr, p.Request.To)
	assert.Nil(t, p.TenderID)
	assert.NotEqual(t, [16]byte{}, [16]byte(p.ID))

	a := ledger.ABI()
	m, err := a.MethodById(p.Request.Data[:4])
	require.NoError(t, err)
	args, err := m.Inputs.Unpack(p.Request.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, "Bridge", args[0])
	assert.Equal(t, "12500000000000000000", args[2].(*big.Int).String())
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).Unix(), args[3].(*big.Int).Int64())
	assert.Equal(t, 0, f.signer.Signed())
}

func TestPostTender_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		budget   string
		deadline string
		sentinel *etendaerr.EtendaError
		reason   ledger.Reason
	}{
		{"empty title", "  ", "1", "2026-03-10", etendaerr.ErrValidation, ledger.EmptyTitle},
		{"zero budget", "T", "0", "2026-03-10", etendaerr.ErrValidation, ledger.InvalidBudget},
		{"past deadline", "T", "1", "2026-02-01", etendaerr.ErrValidation, ledger.InvalidDeadline},
		{"too precise", "T", "1.0000000000000000001", "2026-03-10", etendaerr.ErrPrecision, ""},
		{"garbage deadline", "T", "1", "next week", etendaerr.ErrInvalidDeadlineInput, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, true)
			_, err := f.client.PostTender(context.Background(), tc.title, "desc", tc.budget, tc.deadline)
			require.ErrorIs(t, err, tc.sentinel)
			if tc.reason != "" {
				assert.Equal(t, string(tc.reason), etendaerr.ReasonOf(err))
			}
		})
	}
}

func TestWrites_RequireSigner(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	_, err := f.client.PostTender(context.Background(), "T", "D", "1", "2026-03-10")
	require.ErrorIs(t, err, etendaerr.ErrNoProvider)

	_, err = f.client.CloseTender(context.Background(), "1")
	require.ErrorIs(t, err, etendaerr.ErrNoProvider)
}

func TestSubmitBid(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	id := f.openTender(ownerAddr, 10)

	p, err := f.client.SubmitBid(context.Background(), id.String(), "9.99", "proposal")
	require.NoError(t, err)
	assert.Equal(t, contract.OpSubmitBid, p.Op)
	assert.Equal(t, ownerAddr, p.Owner)
	assert.Equal(t, []common.Address{f.signer.Account()}, p.Bidders)
	assert.Equal(t, 0, p.TenderID.Cmp(id))
	assert.Contains(t, p.Summary(), "submitBid on tender 1")

	_, err = f.client.SubmitBid(context.Background(), id.String(), "10.01", "too much")
	require.ErrorIs(t, err, etendaerr.ErrValidation)
	assert.Equal(t, string(ledger.BidExceedsBudget), etendaerr.ReasonOf(err))

	_, err = f.client.SubmitBid(context.Background(), "42", "1", "x")
	require.ErrorIs(t, err, etendaerr.ErrTenderNotFound)

	_, err = f.client.SubmitBid(context.Background(), "abc", "1", "x")
	require.ErrorIs(t, err, etendaerr.ErrInvalidTenderID)
	assert.Equal(t, 0, f.signer.Signed())
}

func TestSubmitBid_OwnerCannotBid(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	id := f.openTender(f.signer.Account(), 10)

	_, err := f.client.SubmitBid(context.Background(), id.String(), "1", "self")
	require.ErrorIs(t, err, etendaerr.ErrValidation)
	assert.Equal(t, string(ledger.OwnerCannotBid), etendaerr.ReasonOf(err))
}

func TestAwardTender(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	id := f.openTender(f.signer.Account(), 10)
	f.ledger.AddBid(id, bidderA, tokens(3), "a1")
	f.ledger.AddBid(id, bidderB, tokens(4), "b1")
	f.ledger.AddBid(id, bidderA, tokens(2), "a2")

	p, err := f.client.AwardTender(context.Background(), id.String(), "1")
	require.NoError(t, err)
	assert.Equal(t, contract.OpAwardTender, p.Op)
	assert.Equal(t, []common.Address{bidderA, bidderB}, p.Bidders)

	_, err = f.client.AwardTender(context.Background(), id.String(), "3")
	require.ErrorIs(t, err, etendaerr.ErrValidation)
	assert.Equal(t, string(ledger.InvalidBidIndex), etendaerr.ReasonOf(err))

	_, err = f.client.AwardTender(context.Background(), id.String(), "-1")
	require.ErrorIs(t, err, etendaerr.ErrInvalidInput)
}

func TestAwardTender_NotOwner(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	id := f.openTender(ownerAddr, 10)
	f.ledger.AddBid(id, bidderA, tokens(3), "a1")

	_, err := f.client.AwardTender(context.Background(), id.String(), "0")
	require.ErrorIs(t, err, etendaerr.ErrValidation)
	assert.Equal(t, string(ledger.NotTenderOwner), etendaerr.ReasonOf(err))
}

func TestCloseTender(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	id := f.openTender(f.signer.Account(), 10)

	p, err := f.client.CloseTender(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, contract.OpCloseTender, p.Op)
	assert.Empty(t, p.Bidders)

	f.ledger.SetStatus(id, 1)
	_, err = f.client.CloseTender(context.Background(), id.String())
	require.ErrorIs(t, err, etendaerr.ErrValidation)
	assert.Equal(t, string(ledger.TenderNotOpen), etendaerr.ReasonOf(err))
}

func TestReads_TranslateNodeFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.backend.CallFunc = func(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	_, err := f.client.GetTenderCount(context.Background())
	require.ErrorIs(t, err, etendaerr.ErrUnknownFailure)
}
