package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventKind names a ledger event.
type EventKind string

// Ledger events.
const (
	EventTenderCreated EventKind = "TenderCreated"
	EventBidSubmitted  EventKind = "BidSubmitted"
	EventTenderAwarded EventKind = "TenderAwarded"
	EventTenderClosed  EventKind = "TenderClosed"
)

// ErrUnknownEvent is returned for logs that are not ledger events.
var ErrUnknownEvent = errors.New("not a ledger event")

// Event is a decoded ledger log. Account is the owner, bidder or winner
// depending on Kind. Amount is the budget or bid amount.
type Event struct {
	Kind        EventKind
	TenderID    *big.Int
	Account     common.Address
	Amount      *big.Int
	Title       string
	BlockNumber uint64
	TxHash      common.Hash
}

// Topics returns the topic0 hashes of all ledger events, for log filters.
func Topics() []common.Hash {
	a := ABI()
	return []common.Hash{
		a.Events[string(EventTenderCreated)].ID,
		a.Events[string(EventBidSubmitted)].ID,
		a.Events[string(EventTenderAwarded)].ID,
		a.Events[string(EventTenderClosed)].ID,
	}
}

// ParseLog decodes a ledger log.
func ParseLog(l types.Log) (*Event, error) {
	if len(l.Topics) < 2 {
		return nil, ErrUnknownEvent
	}
	a := ABI()
	ev, err := a.EventByID(l.Topics[0])
	if err != nil {
		return nil, ErrUnknownEvent
	}

	out := &Event{
		Kind:        EventKind(ev.Name),
		TenderID:    new(big.Int).SetBytes(l.Topics[1].Bytes()),
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
	}
	if out.Kind != EventTenderClosed {
		if len(l.Topics) < 3 {
			return nil, fmt.Errorf("%s log: missing indexed address", ev.Name)
		}
		out.Account = common.BytesToAddress(l.Topics[2].Bytes())
	}

	if len(l.Data) == 0 {
		return out, nil
	}
	fields := map[string]any{}
	if err := a.UnpackIntoMap(fields, ev.Name, l.Data); err != nil {
		return nil, fmt.Errorf("decoding %s log: %w", ev.Name, err)
	}
	if v, ok := fields["title"].(string); ok {
		out.Title = v
	}
	if v, ok := fields["budget"].(*big.Int); ok {
		out.Amount = v
	}
	if v, ok := fields["amount"].(*big.Int); ok {
		out.Amount = v
	}
	return out, nil
}

// FindTenderCreated returns the TenderCreated event emitted by contract in logs.
func FindTenderCreated(logs []*types.Log, contract common.Address) (*Event, bool) {
	for _, l := range logs {
		if l == nil || l.Address != contract {
			continue
		}
		ev, err := ParseLog(*l)
		if err == nil && ev.Kind == EventTenderCreated {
			return ev, true
		}
	}
	return nil, false
}
