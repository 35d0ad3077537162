package tender

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/ledger"
)

var owner = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")

func oneEther() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   string
	}{
		{StatusOpen, "Open"},
		{StatusClosed, "Closed"},
		{StatusAwarded, "Awarded"},
		{Status(7), "Unknown"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.status.String())
	}

	s, err := ParseStatus(" awarded ")
	require.NoError(t, err)
	assert.Equal(t, StatusAwarded, s)
	_, err = ParseStatus("pending")
	require.Error(t, err)
}

func TestTender_TerminalAndExpired(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tn := &Tender{Status: StatusOpen, Deadline: deadline}
	assert.False(t, tn.IsTerminal())
	assert.False(t, tn.Expired(deadline.Add(-time.Second)))
	assert.True(t, tn.Expired(deadline))

	tn.Status = StatusClosed
	assert.True(t, tn.IsTerminal())
	tn.Status = StatusAwarded
	assert.True(t, tn.IsTerminal())
}

func TestFromRecord(t *testing.T) {
	t.Parallel()

	tn := FromRecord(ledger.TenderRecord{
		Id: big.NewInt(4), Owner: owner, Title: "t", Description: "d",
		Budget: oneEther(), Deadline: big.NewInt(1_900_000_000), Status: 2,
	})
	assert.Equal(t, int64(4), tn.ID.Int64())
	assert.Equal(t, StatusAwarded, tn.Status)
	assert.Equal(t, int64(1_900_000_000), tn.Deadline.Unix())

	b := BidFromRecord(tn.ID, 1, ledger.BidRecord{Bidder: owner, Amount: big.NewInt(1), Proposal: "p", Selected: true})
	assert.Equal(t, 1, b.Index)
	assert.True(t, b.Selected)
}

func TestTender_JSON(t *testing.T) {
	t.Parallel()

	budget := new(big.Int).Mul(oneEther(), big.NewInt(3))
	budget.Add(budget, big.NewInt(5e17))
	in := Tender{
		ID: big.NewInt(9), Owner: owner, Title: "Roof", Description: "Fix",
		Budget: budget, Deadline: time.Unix(1_900_000_000, 0).UTC(), Status: StatusOpen,
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"budget":"3.5"`)
	assert.Contains(t, string(raw), `"status":"Open"`)

	var out Tender
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 0, in.Budget.Cmp(out.Budget))
	assert.True(t, in.Deadline.Equal(out.Deadline))
	assert.Equal(t, in.Owner, out.Owner)
}

func TestBid_JSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Bid{Bidder: owner, Amount: oneEther(), Proposal: "p"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tender_id")

	var out Bid
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Nil(t, out.TenderID)
	assert.Equal(t, 0, oneEther().Cmp(out.Amount))
}

func TestComputeStats(t *testing.T) {
	t.Parallel()

	tenders := []*Tender{
		{Status: StatusOpen, Budget: big.NewInt(10)},
		{Status: StatusClosed, Budget: big.NewInt(5)},
		nil,
	}
	bids := []Bid{{Selected: true}, {}, {}}

	s := ComputeStats(tenders, bids)
	assert.Equal(t, 2, s.TotalTenders)
	assert.Equal(t, 1, s.OpenTenders)
	assert.Equal(t, 2, s.ActiveBids)
	assert.Equal(t, 1, s.WonBids)
	assert.Equal(t, int64(15), s.TotalBudget.Int64())

	empty := ComputeStats(nil, nil)
	assert.Equal(t, int64(0), empty.TotalBudget.Int64())
}
