package output_test

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/contract"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/output"
	"github.com/etenda/etenda/internal/tender"
	"github.com/etenda/etenda/internal/txlifecycle"
)

//nolint:gochecknoglobals // test fixtures
var (
	owner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bidder = common.HexToAddress("0x2222222222222222222222222222222222222222")
	now    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func sampleTender(id int64, status tender.Status, deadline time.Time) *tender.Tender {
	return &tender.Tender{
		ID:          big.NewInt(id),
		Owner:       owner,
		Title:       "Resurface Main Street between the bridge and the old mill",
		Description: "Full resurfacing",
		Budget:      new(big.Int).Mul(big.NewInt(12), big.NewInt(1e17)),
		Deadline:    deadline,
		Status:      status,
	}
}

func TestTenders_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatText, &buf)

	require.NoError(t, f.Tenders([]*tender.Tender{
		sampleTender(2, tender.StatusOpen, now.Add(time.Hour)),
		sampleTender(1, tender.StatusOpen, now.Add(-time.Hour)),
		sampleTender(3, tender.StatusAwarded, now.Add(-time.Hour)),
	}, now))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "1.2")
	assert.Contains(t, out, "Open (bidding ended)")
	assert.Contains(t, out, "Awarded")
	assert.Contains(t, out, "...", "long titles are truncated")
}

func TestTender_DeadlineInConfiguredZone(t *testing.T) {
	t.Parallel()
	tokyo := time.FixedZone("JST", 9*60*60)

	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatText, &buf, output.WithLocation(tokyo))
	require.NoError(t, f.Tender(sampleTender(5, tender.StatusOpen, now.Add(time.Hour)), nil, now))
	assert.Contains(t, buf.String(), "Deadline: 2026-03-01 22:00 JST")

	buf.Reset()
	require.NoError(t, output.NewFormatter(output.FormatText, &buf, output.WithLocation(time.UTC)).
		Tender(sampleTender(5, tender.StatusOpen, now.Add(time.Hour)), nil, now))
	assert.Contains(t, buf.String(), "Deadline: 2026-03-01 13:00 UTC")
}

func TestTenders_EmptyJSONIsArray(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatJSON, &buf)

	require.NoError(t, f.Tenders(nil, now))
	assert.JSONEq(t, "[]", buf.String())
}

func TestTender_JSONIncludesBids(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatJSON, &buf)

	td := sampleTender(7, tender.StatusOpen, now.Add(time.Hour))
	bids := []tender.Bid{{TenderID: big.NewInt(7), Bidder: bidder, Amount: big.NewInt(1e18), Proposal: "ok"}}
	require.NoError(t, f.Tender(td, bids, now))

	var got struct {
		Tender map[string]any   `json:"tender"`
		Bids   []map[string]any `json:"bids"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "7", got.Tender["id"])
	require.Len(t, got.Bids, 1)
	assert.Equal(t, "1", got.Bids[0]["amount"])
}

func TestBids_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatText, &buf)

	require.NoError(t, f.Bids(nil))
	assert.Equal(t, "No bids yet.\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Bids([]tender.Bid{{Index: 0, Bidder: bidder, Amount: big.NewInt(5e17), Selected: true}}))
	assert.Contains(t, buf.String(), "0.5")
	assert.Contains(t, buf.String(), "yes")
	assert.Contains(t, buf.String(), bidder.Hex())
}

func TestStats(t *testing.T) {
	t.Parallel()
	s := tender.Stats{TotalTenders: 2, OpenTenders: 1, ActiveBids: 3, WonBids: 1, TotalBudget: big.NewInt(25e17)}

	var js bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatJSON, &js).Stats(owner, s))
	var got map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &got))
	assert.Equal(t, "2.5", got["total_budget"])
	assert.InDelta(t, 3, got["active_bids"], 0)

	var text bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatText, &text).Stats(owner, s))
	assert.Contains(t, text.String(), "Bids won")
}

func TestTxView(t *testing.T) {
	t.Parallel()
	network, ok := chain.NetworkByID(chain.BaseSepolia)
	require.True(t, ok)

	hash := common.HexToHash("0xfeed")
	o := &txlifecycle.Outcome{
		ID:        uuid.New(),
		Operation: contract.OpPostTender,
		State:     txlifecycle.StateConfirmed,
		Handle:    gateway.Handle{Hash: hash},
		Receipt:   &types.Receipt{BlockNumber: big.NewInt(101), GasUsed: 90_000},
		History:   []txlifecycle.Transition{{State: txlifecycle.StatePrepared, At: now}},
	}
	v := output.NewTxView(o, big.NewInt(4), network)
	assert.Equal(t, hash.Hex(), v.TxHash)
	assert.Equal(t, "4", v.TenderID)
	assert.Equal(t, uint64(101), v.Block)
	assert.Equal(t, "https://sepolia.basescan.org/tx/"+hash.Hex(), v.Explorer)

	var buf bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatText, &buf).Tx(v))
	assert.True(t, strings.HasPrefix(buf.String(), "✓ postTender confirmed (tender #4)\n"), buf.String())

	o.State = txlifecycle.StateRejected
	o.Handle = gateway.Handle{}
	o.Receipt = nil
	v = output.NewTxView(o, nil, network)
	assert.Empty(t, v.TxHash)
	assert.Empty(t, v.Explorer)

	buf.Reset()
	require.NoError(t, output.NewFormatter(output.FormatText, &buf).Tx(v))
	assert.Equal(t, "! postTender ended rejected\n", buf.String())
}

func TestNetworks(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatText, &buf)

	require.NoError(t, f.Networks(chain.Networks(), chain.DefaultAddressBook(), "base-sepolia"))
	out := buf.String()
	assert.Contains(t, out, "*  base-sepolia")
	assert.Contains(t, out, "0x7e767A270111a8957FCc69ee3ea95bD0c9F67708")
}
