package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	bidder   = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	contract = common.HexToAddress("0x7e767A270111a8957FCc69ee3ea95bD0c9F67708")
)

func TestABI_HasLedgerSurface(t *testing.T) {
	t.Parallel()

	a := ABI()
	for _, m := range []string{
		MethodGetTenderDetails, MethodGetRecentTenders, MethodGetUserTenders, MethodGetUserBids,
		MethodGetTenderBids, MethodGetTenderCount, MethodPostTender, MethodSubmitBid,
		MethodAwardTender, MethodCloseTender,
	} {
		assert.Contains(t, a.Methods, m)
	}
	for _, r := range LedgerReasons() {
		e, ok := a.Errors[string(r)]
		require.True(t, ok, "missing error %s", r)
		assert.Equal(t, Selector(string(r)+"()"), [4]byte(e.ID[:4]))
	}
	assert.Len(t, Topics(), 4)
}

func TestSelector_KnownValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, [4]byte{0x08, 0xc3, 0x79, 0xa0}, Selector("Error(string)"))
	assert.Equal(t, [4]byte{0x4e, 0x48, 0x7b, 0x71}, Selector("Panic(uint256)"))
}

func TestUnpackTender(t *testing.T) {
	t.Parallel()

	rec := TenderRecord{
		Id: big.NewInt(3), Owner: owner, Title: "Roof", Description: "Fix the roof",
		Budget: big.NewInt(5e18), Deadline: big.NewInt(1_900_000_000), Status: 0,
	}
	data, err := ABI().Methods[MethodGetTenderDetails].Outputs.Pack(rec)
	require.NoError(t, err)

	got, err := UnpackTender(data)
	require.NoError(t, err)
	assert.Equal(t, rec.Id, got.Id)
	assert.Equal(t, owner, got.Owner)
	assert.Equal(t, "Fix the roof", got.Description)
	assert.Equal(t, 0, rec.Budget.Cmp(got.Budget))
}

func TestUnpackTendersAndBids(t *testing.T) {
	t.Parallel()

	recs := []TenderRecord{
		{Id: big.NewInt(1), Owner: owner, Title: "a", Description: "b", Budget: big.NewInt(1), Deadline: big.NewInt(2), Status: 1},
		{Id: big.NewInt(2), Owner: owner, Title: "c", Description: "d", Budget: big.NewInt(3), Deadline: big.NewInt(4), Status: 2},
	}
	data, err := ABI().Methods[MethodGetRecentTenders].Outputs.Pack(recs)
	require.NoError(t, err)
	got, err := UnpackTenders(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint8(2), got[1].Status)

	bids := []BidRecord{{Bidder: bidder, Amount: big.NewInt(7), Proposal: "cheap", Selected: true}}
	data, err = ABI().Methods[MethodGetTenderBids].Outputs.Pack(bids)
	require.NoError(t, err)
	gotBids, err := UnpackBids(MethodGetTenderBids, data)
	require.NoError(t, err)
	require.Len(t, gotBids, 1)
	assert.Equal(t, bidder, gotBids[0].Bidder)
	assert.True(t, gotBids[0].Selected)

	data, err = ABI().Methods[MethodGetUserTenders].Outputs.Pack([]*big.Int{big.NewInt(4), big.NewInt(9)})
	require.NoError(t, err)
	ids, err := UnpackIDs(data)
	require.NoError(t, err)
	assert.Equal(t, []*big.Int{big.NewInt(4), big.NewInt(9)}, ids)

	data, err = ABI().Methods[MethodGetTenderCount].Outputs.Pack(big.NewInt(12))
	require.NoError(t, err)
	n, err := UnpackUint(MethodGetTenderCount, data)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n.Int64())
}

func TestPack_RejectsBadArgs(t *testing.T) {
	t.Parallel()

	_, err := Pack(MethodCloseTender, "not a number")
	require.Error(t, err)

	data, err := Pack(MethodCloseTender, big.NewInt(1))
	require.NoError(t, err)
	assert.Len(t, data, 36)
}

func TestFindReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want Reason
		ok   bool
	}{
		{"execution reverted: DeadlinePassed", DeadlinePassed, true},
		{"reverted with custom error 'OwnerCannotBid()'", OwnerCannotBid, true},
		{"NotTenderOwner", NotTenderOwner, true},
		{"XTenderNotOpen", "", false},
		{"insufficient funds for gas", "", false},
	}
	for _, tc := range tests {
		got, ok := FindReason(tc.msg)
		assert.Equal(t, tc.ok, ok, tc.msg)
		assert.Equal(t, tc.want, got, tc.msg)
	}
}

func TestParseReason(t *testing.T) {
	t.Parallel()

	r, ok := ParseReason("EmptyTitle")
	assert.True(t, ok)
	assert.Equal(t, EmptyTitle, r)
	assert.False(t, IsLedgerReason(r))
	assert.True(t, IsLedgerReason(TenderNotExists))

	_, ok = ParseReason("Nope")
	assert.False(t, ok)
}

func TestDecodeRevert(t *testing.T) {
	t.Parallel()

	t.Run("custom error", func(t *testing.T) {
		t.Parallel()
		id := ABI().Errors[string(BidExceedsBudget)].ID
		r, msg, ok := DecodeRevert(id[:4])
		require.True(t, ok)
		assert.Equal(t, BidExceedsBudget, r)
		assert.Equal(t, "BidExceedsBudget", msg)
	})

	t.Run("error string", func(t *testing.T) {
		t.Parallel()
		stringT, err := abi.NewType("string", "", nil)
		require.NoError(t, err)
		payload, err := abi.Arguments{{Type: stringT}}.Pack("TenderNotOpen")
		require.NoError(t, err)
		sel := Selector("Error(string)")
		r, msg, ok := DecodeRevert(append(sel[:], payload...))
		require.True(t, ok)
		assert.Equal(t, TenderNotOpen, r)
		assert.Equal(t, "TenderNotOpen", msg)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, _, ok := DecodeRevert([]byte{1, 2, 3, 4, 5})
		assert.False(t, ok)
		_, _, ok = DecodeRevert(nil)
		assert.False(t, ok)
	})
}

func TestRevertData(t *testing.T) {
	t.Parallel()

	b, ok := RevertData("0x08c379a0")
	assert.True(t, ok)
	assert.Equal(t, []byte{0x08, 0xc3, 0x79, 0xa0}, b)

	_, ok = RevertData("reverted")
	assert.False(t, ok)
	_, ok = RevertData(42)
	assert.False(t, ok)
}

func TestParseLog(t *testing.T) {
	t.Parallel()

	ev := ABI().Events[string(EventTenderCreated)]
	data, err := ev.Inputs.NonIndexed().Pack("Roof", big.NewInt(5))
	require.NoError(t, err)

	l := types.Log{
		Address:     contract,
		Topics:      []common.Hash{ev.ID, common.BigToHash(big.NewInt(11)), common.BytesToHash(owner.Bytes())},
		Data:        data,
		BlockNumber: 99,
	}
	got, err := ParseLog(l)
	require.NoError(t, err)
	assert.Equal(t, EventTenderCreated, got.Kind)
	assert.Equal(t, int64(11), got.TenderID.Int64())
	assert.Equal(t, owner, got.Account)
	assert.Equal(t, "Roof", got.Title)
	assert.Equal(t, int64(5), got.Amount.Int64())

	found, ok := FindTenderCreated([]*types.Log{nil, &l}, contract)
	require.True(t, ok)
	assert.Equal(t, got.TenderID, found.TenderID)

	_, ok = FindTenderCreated([]*types.Log{&l}, owner)
	assert.False(t, ok)

	closed := ABI().Events[string(EventTenderClosed)]
	got, err = ParseLog(types.Log{Topics: []common.Hash{closed.ID, common.BigToHash(big.NewInt(2))}})
	require.NoError(t, err)
	assert.Equal(t, EventTenderClosed, got.Kind)

	_, err = ParseLog(types.Log{Topics: []common.Hash{{}, {}}})
	require.ErrorIs(t, err, ErrUnknownEvent)
}
