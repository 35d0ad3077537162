// Package ledgertest simulates the tender ledger contract on top of a
// chaintest.Backend: calls are answered from in-memory state, estimation
// and sends apply the ledger's rules, and mined writes emit real logs.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/etenda/etenda/internal/chain/chaintest"
	"github.com/etenda/etenda/internal/ledger"
)

// RevertError is what a node returns for a reverted call: the message plus
// ABI-encoded revert data.
type RevertError struct {
	Reason  ledger.Reason // custom error name, empty for a require string
	Message string        // require string when Reason is empty
}

func (e *RevertError) Error() string {
	if e.Reason == "" && e.Message != "" {
		return "execution reverted: " + e.Message
	}
	return "execution reverted"
}

// ErrorCode is the JSON-RPC code nodes use for reverts.
func (e *RevertError) ErrorCode() int { return 3 }

// ErrorData returns the revert payload as a hex string.
func (e *RevertError) ErrorData() any {
	if e.Reason != "" {
		id := ledger.ABI().Errors[string(e.Reason)].ID
		return hexutil.Encode(id[:4])
	}
	sel := ledger.Selector("Error(string)")
	str, _ := abi.NewType("string", "", nil)
	body, _ := abi.Arguments{{Type: str}}.Pack(e.Message)
	return hexutil.Encode(append(sel[:], body...))
}

func revert(r ledger.Reason) error { return &RevertError{Reason: r} }

// Ledger is an in-memory tender ledger. Tender ids start at 1.
type Ledger struct {
	Address common.Address
	// Now is the block timestamp used for deadline checks.
	Now func() time.Time

	mu      sync.Mutex
	tenders []ledger.TenderRecord
	bids    map[uint64][]ledger.BidRecord
	byOwner map[common.Address][]*big.Int
	byBid   map[common.Address][]ledger.BidRecord
}

// New returns an empty ledger deployed at addr.
func New(addr common.Address) *Ledger {
	return &Ledger{
		Address: addr,
		Now:     time.Now,
		bids:    make(map[uint64][]ledger.BidRecord),
		byOwner: make(map[common.Address][]*big.Int),
		byBid:   make(map[common.Address][]ledger.BidRecord),
	}
}

// Attach routes b's contract calls, estimation and sends through l.
func (l *Ledger) Attach(b *chaintest.Backend) {
	b.CallFunc = l.Call
	b.EstimateGasFunc = func(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, err := l.exec(msg.From, msg.Data, false); err != nil {
			return 0, err
		}
		return 90_000, nil
	}
	b.SendFunc = func(ctx context.Context, tx *types.Transaction) error {
		from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
		if err != nil {
			return err
		}
		block, _ := b.BlockNumber(ctx)

		l.mu.Lock()
		logs, execErr := l.exec(from, tx.Data(), true)
		l.mu.Unlock()

		if execErr != nil {
			b.SetReceipt(tx.Hash(), chaintest.FailedReceipt(tx, block))
			return nil
		}
		for _, lg := range logs {
			lg.BlockNumber = block
			lg.TxHash = tx.Hash()
		}
		b.SetReceipt(tx.Hash(), chaintest.SuccessReceipt(tx, block, logs...))
		return nil
	}
}

// AddTender stores a tender directly and returns its id.
func (l *Ledger) AddTender(owner common.Address, title, description string, budget *big.Int, deadline time.Time) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addTender(owner, title, description, budget, big.NewInt(deadline.Unix()))
}

// AddBid stores a bid directly, bypassing the rules.
func (l *Ledger) AddBid(id *big.Int, bidder common.Address, amount *big.Int, proposal string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addBid(id.Uint64(), bidder, amount, proposal)
}

// SetStatus overrides a tender's status.
func (l *Ledger) SetStatus(id *big.Int, status uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tenders[id.Uint64()-1].Status = status
}

// Tender returns a copy of a stored tender.
func (l *Ledger) Tender(id *big.Int) (ledger.TenderRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(id)
}

// Bids returns a copy of the bids on id.
func (l *Ledger) Bids(id *big.Int) []ledger.BidRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledger.BidRecord(nil), l.bids[id.Uint64()]...)
}

// Call answers eth_call. Write methods are simulated without applying.
func (l *Ledger) Call(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || *msg.To != l.Address {
		return nil, nil
	}
	m, args, err := decode(msg.Data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch m.Name {
	case ledger.MethodGetTenderDetails:
		rec, ok := l.get(args[0].(*big.Int))
		if !ok {
			return nil, revert(ledger.TenderNotExists)
		}
		return m.Outputs.Pack(rec)
	case ledger.MethodGetRecentTenders:
		limit := int(args[0].(*big.Int).Int64())
		out := make([]ledger.TenderRecord, 0, limit)
		for i := len(l.tenders) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, l.tenders[i])
		}
		return m.Outputs.Pack(out)
	case ledger.MethodGetUserTenders:
		ids := append([]*big.Int{}, l.byOwner[args[0].(common.Address)]...)
		return m.Outputs.Pack(ids)
	case ledger.MethodGetUserBids:
		return m.Outputs.Pack(append([]ledger.BidRecord{}, l.byBid[args[0].(common.Address)]...))
	case ledger.MethodGetTenderBids:
		id := args[0].(*big.Int)
		if _, ok := l.get(id); !ok {
			return nil, revert(ledger.TenderNotExists)
		}
		return m.Outputs.Pack(append([]ledger.BidRecord{}, l.bids[id.Uint64()]...))
	case ledger.MethodGetTenderCount:
		return m.Outputs.Pack(big.NewInt(int64(len(l.tenders))))
	default:
		if _, err := l.exec(msg.From, msg.Data, false); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func decode(data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("ledgertest: short calldata")
	}
	a := ledger.ABI()
	m, err := a.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("ledgertest: %s args: %w", m.Name, err)
	}
	return m, args, nil
}

// exec applies a write from sender. With apply false it only checks the
// rules. Callers hold l.mu.
func (l *Ledger) exec(from common.Address, data []byte, apply bool) ([]*types.Log, error) {
	m, args, err := decode(data)
	if err != nil {
		return nil, err
	}
	now := big.NewInt(l.Now().Unix())

	switch m.Name {
	case ledger.MethodPostTender:
		title, desc := args[0].(string), args[1].(string)
		budget, deadline := args[2].(*big.Int), args[3].(*big.Int)
		if budget.Sign() <= 0 {
			return nil, revert(ledger.InvalidBudget)
		}
		if deadline.Cmp(now) <= 0 {
			return nil, revert(ledger.InvalidDeadline)
		}
		if !apply {
			return nil, nil
		}
		id := l.addTender(from, title, desc, budget, deadline)
		return []*types.Log{l.log(ledger.EventTenderCreated, id, &from, title, budget)}, nil

	case ledger.MethodSubmitBid:
		id, amount, proposal := args[0].(*big.Int), args[1].(*big.Int), args[2].(string)
		t, ok := l.get(id)
		switch {
		case !ok:
			return nil, revert(ledger.TenderNotExists)
		case from == t.Owner:
			return nil, revert(ledger.OwnerCannotBid)
		case t.Status != 0:
			return nil, revert(ledger.TenderNotOpen)
		case now.Cmp(t.Deadline) >= 0:
			return nil, revert(ledger.DeadlinePassed)
		case amount.Sign() <= 0:
			return nil, &RevertError{Message: "Bid amount must be greater than 0"}
		case amount.Cmp(t.Budget) > 0:
			return nil, revert(ledger.BidExceedsBudget)
		}
		if !apply {
			return nil, nil
		}
		l.addBid(id.Uint64(), from, amount, proposal)
		return []*types.Log{l.log(ledger.EventBidSubmitted, id, &from, amount)}, nil

	case ledger.MethodAwardTender, ledger.MethodCloseTender:
		id := args[0].(*big.Int)
		t, ok := l.get(id)
		switch {
		case !ok:
			return nil, revert(ledger.TenderNotExists)
		case from != t.Owner:
			return nil, revert(ledger.NotTenderOwner)
		case t.Status != 0:
			return nil, revert(ledger.TenderNotOpen)
		}
		if m.Name == ledger.MethodCloseTender {
			if apply {
				l.tenders[id.Uint64()-1].Status = 1
			}
			return []*types.Log{l.log(ledger.EventTenderClosed, id, nil)}, nil
		}
		index := args[1].(*big.Int)
		bids := l.bids[id.Uint64()]
		if !index.IsUint64() || index.Uint64() >= uint64(len(bids)) {
			return nil, revert(ledger.InvalidBidIndex)
		}
		winner := bids[index.Uint64()].Bidder
		if apply {
			l.tenders[id.Uint64()-1].Status = 2
			bids[index.Uint64()].Selected = true
			for i, b := range l.byBid[winner] {
				if b.Amount.Cmp(bids[index.Uint64()].Amount) == 0 && b.Proposal == bids[index.Uint64()].Proposal {
					l.byBid[winner][i].Selected = true
					break
				}
			}
		}
		return []*types.Log{l.log(ledger.EventTenderAwarded, id, &winner)}, nil
	}
	return nil, fmt.Errorf("ledgertest: %s is not a write", m.Name)
}

func (l *Ledger) get(id *big.Int) (ledger.TenderRecord, bool) {
	if id == nil || id.Sign() <= 0 || !id.IsUint64() || id.Uint64() > uint64(len(l.tenders)) {
		return ledger.TenderRecord{}, false
	}
	return l.tenders[id.Uint64()-1], true
}

func (l *Ledger) addTender(owner common.Address, title, desc string, budget, deadline *big.Int) *big.Int {
	id := big.NewInt(int64(len(l.tenders) + 1))
	l.tenders = append(l.tenders, ledger.TenderRecord{
		Id:          id,
		Owner:       owner,
		Title:       title,
		Description: desc,
		Budget:      new(big.Int).Set(budget),
		Deadline:    new(big.Int).Set(deadline),
	})
	l.byOwner[owner] = append(l.byOwner[owner], id)
	return id
}

func (l *Ledger) addBid(id uint64, bidder common.Address, amount *big.Int, proposal string) {
	b := ledger.BidRecord{Bidder: bidder, Amount: new(big.Int).Set(amount), Proposal: proposal}
	l.bids[id] = append(l.bids[id], b)
	l.byBid[bidder] = append(l.byBid[bidder], b)
}

func (l *Ledger) log(kind ledger.EventKind, id *big.Int, account *common.Address, data ...any) *types.Log {
	ev := ledger.ABI().Events[string(kind)]
	topics := []common.Hash{ev.ID, common.BigToHash(id)}
	if account != nil {
		topics = append(topics, common.BytesToHash(account.Bytes()))
	}
	var body []byte
	if len(data) > 0 {
		body, _ = ev.Inputs.NonIndexed().Pack(data...)
	}
	return &types.Log{Address: l.Address, Topics: topics, Data: body}
}
