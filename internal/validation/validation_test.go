package validation

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/ledger"
	"github.com/etenda/etenda/internal/tender"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

var (
	now    = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	owner  = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	bidder = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
)

func assertReason(t *testing.T, err error, want ledger.Reason) {
	t.Helper()
	if want == "" {
		require.NoError(t, err)
		return
	}
	require.Error(t, err)
	assert.Equal(t, etendaerr.KindValidation, etendaerr.KindOf(err))
	assert.Equal(t, string(want), etendaerr.ReasonOf(err))
}

func openTender() *tender.Tender {
	return &tender.Tender{
		ID:       big.NewInt(1),
		Owner:    owner,
		Budget:   big.NewInt(100),
		Deadline: now.Add(time.Hour),
		Status:   tender.StatusOpen,
	}
}

func TestPostTender(t *testing.T) {
	t.Parallel()

	valid := PostTenderInput{Title: "Roof", Description: "Fix it", Budget: big.NewInt(1), Deadline: now.Add(time.Minute)}

	tests := []struct {
		name   string
		mutate func(*PostTenderInput)
		want   ledger.Reason
	}{
		{"valid", func(*PostTenderInput) {}, ""},
		{"blank title", func(in *PostTenderInput) { in.Title = "   " }, ledger.EmptyTitle},
		{"blank description", func(in *PostTenderInput) { in.Description = "\t" }, ledger.EmptyDescription},
		{"zero budget", func(in *PostTenderInput) { in.Budget = big.NewInt(0) }, ledger.InvalidBudget},
		{"nil budget", func(in *PostTenderInput) { in.Budget = nil }, ledger.InvalidBudget},
		{"deadline now", func(in *PostTenderInput) { in.Deadline = now }, ledger.InvalidDeadline},
		{"deadline past", func(in *PostTenderInput) { in.Deadline = now.Add(-time.Hour) }, ledger.InvalidDeadline},
		{"title checked first", func(in *PostTenderInput) { in.Title = ""; in.Budget = nil }, ledger.EmptyTitle},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := valid
			tc.mutate(&in)
			assertReason(t, PostTender(in, now), tc.want)
		})
	}
}

func TestSubmitBid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*tender.Tender)
		from   common.Address
		amount *big.Int
		want   ledger.Reason
	}{
		{"valid", nil, bidder, big.NewInt(50), ""},
		{"exactly budget", nil, bidder, big.NewInt(100), ""},
		{"owner", nil, owner, big.NewInt(50), ledger.OwnerCannotBid},
		{"closed", func(tn *tender.Tender) { tn.Status = tender.StatusClosed }, bidder, big.NewInt(50), ledger.TenderNotOpen},
		{"deadline reached", func(tn *tender.Tender) { tn.Deadline = now }, bidder, big.NewInt(50), ledger.DeadlinePassed},
		{"zero amount", nil, bidder, big.NewInt(0), ledger.InvalidBidAmount},
		{"over budget", nil, bidder, big.NewInt(101), ledger.BidExceedsBudget},
		{"owner on closed tender", func(tn *tender.Tender) { tn.Status = tender.StatusAwarded }, owner, big.NewInt(500), ledger.OwnerCannotBid},
		{"closed and expired", func(tn *tender.Tender) {
			tn.Status = tender.StatusClosed
			tn.Deadline = now.Add(-time.Hour)
		}, bidder, big.NewInt(1), ledger.TenderNotOpen},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tn := openTender()
			if tc.mutate != nil {
				tc.mutate(tn)
			}
			assertReason(t, SubmitBid(tn, tc.from, tc.amount, now), tc.want)
		})
	}
}

func TestAwardTender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		caller common.Address
		status tender.Status
		index  *big.Int
		bids   int
		want   ledger.Reason
	}{
		{"valid", owner, tender.StatusOpen, big.NewInt(1), 2, ""},
		{"not owner", bidder, tender.StatusOpen, big.NewInt(0), 2, ledger.NotTenderOwner},
		{"already awarded", owner, tender.StatusAwarded, big.NewInt(0), 2, ledger.TenderNotOpen},
		{"index out of range", owner, tender.StatusOpen, big.NewInt(2), 2, ledger.InvalidBidIndex},
		{"no bids", owner, tender.StatusOpen, big.NewInt(0), 0, ledger.InvalidBidIndex},
		{"negative", owner, tender.StatusOpen, big.NewInt(-1), 3, ledger.InvalidBidIndex},
		{"not owner wins over status", bidder, tender.StatusClosed, big.NewInt(9), 0, ledger.NotTenderOwner},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tn := openTender()
			tn.Status = tc.status
			assertReason(t, AwardTender(tn, tc.caller, tc.index, tc.bids), tc.want)
		})
	}
}

func TestCloseTender(t *testing.T) {
	t.Parallel()

	tn := openTender()
	assertReason(t, CloseTender(tn, owner), "")
	assertReason(t, CloseTender(tn, bidder), ledger.NotTenderOwner)
	tn.Status = tender.StatusClosed
	assertReason(t, CloseTender(tn, owner), ledger.TenderNotOpen)
}

func TestDeterministic(t *testing.T) {
	t.Parallel()

	tn := openTender()
	first := SubmitBid(tn, bidder, big.NewInt(1000), now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, etendaerr.ReasonOf(first), etendaerr.ReasonOf(SubmitBid(tn, bidder, big.NewInt(1000), now)))
	}
}
