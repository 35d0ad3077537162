package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/chain/eth"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/ledger"
	"github.com/etenda/etenda/internal/tender"
	"github.com/etenda/etenda/internal/validation"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// Op names a ledger write.
type Op string

// Ledger writes.
const (
	OpPostTender  Op = "postTender"
	OpSubmitBid   Op = "submitBid"
	OpAwardTender Op = "awardTender"
	OpCloseTender Op = "closeTender"
)

// Prepared is a validated write bound to the snapshot it was checked
// against. It carries what the lifecycle needs to sign and what the
// repository needs to refresh afterwards.
type Prepared struct {
	ID         uuid.UUID
	Op         Op
	Args       []any
	Request    eth.TxRequest
	Snapshot   *gateway.Snapshot
	Contract   common.Address
	From       common.Address
	TenderID   *big.Int         // nil for postTender until the receipt is read
	Owner      common.Address   // owner of the affected tender
	Bidders    []common.Address // accounts whose bid views change
	PreparedAt time.Time
}

// Summary describes the operation for prompts and logs.
func (p *Prepared) Summary() string {
	if p.TenderID == nil {
		return string(p.Op)
	}
	return fmt.Sprintf("%s on tender %s", p.Op, p.TenderID)
}

func (c *Client) account() (common.Address, error) {
	acct, ok := c.snap.Account()
	if !ok {
		return common.Address{}, etendaerr.WithSuggestion(
			etendaerr.WithDetails(etendaerr.ErrNoProvider, map[string]string{"missing": "signer"}),
			"configure a key with --key or ETENDA_KEY")
	}
	return acct, nil
}

func (c *Client) prepare(op Op, from common.Address, tenderID *big.Int, args ...any) (*Prepared, error) {
	data, err := ledger.Pack(string(op), args...)
	if err != nil {
		return nil, err
	}
	return &Prepared{
		ID:         uuid.New(),
		Op:         op,
		Args:       args,
		Request:    eth.TxRequest{From: from, To: c.address, Data: data},
		Snapshot:   c.snap,
		Contract:   c.address,
		From:       from,
		TenderID:   tenderID,
		PreparedAt: c.now(),
	}, nil
}

// PostTender validates and prepares a new tender. budget is a decimal
// string; deadline accepts the formats of chain.ParseDeadline.
func (c *Client) PostTender(_ context.Context, title, description, budget, deadline string) (*Prepared, error) {
	from, err := c.account()
	if err != nil {
		return nil, err
	}
	amount, err := chain.ParseAmount(budget)
	if err != nil {
		return nil, err
	}
	when, err := chain.ParseDeadline(deadline, c.location)
	if err != nil {
		return nil, err
	}
	in := validation.PostTenderInput{Title: title, Description: description, Budget: amount, Deadline: when}
	if err := validation.PostTender(in, c.now()); err != nil {
		return nil, err
	}

	p, err := c.prepare(OpPostTender, from, nil,
		strings.TrimSpace(title), strings.TrimSpace(description), amount, chain.DeadlineToUnix(when))
	if err != nil {
		return nil, err
	}
	p.Owner = from
	return p, nil
}

// SubmitBid validates and prepares a bid of amount on tender id.
func (c *Client) SubmitBid(ctx context.Context, id, amount, proposal string) (*Prepared, error) {
	from, err := c.account()
	if err != nil {
		return nil, err
	}
	tenderID, err := ParseTenderID(id)
	if err != nil {
		return nil, err
	}
	value, err := chain.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	t, err := c.GetTenderDetails(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if err := validation.SubmitBid(t, from, value, c.now()); err != nil {
		return nil, err
	}

	p, err := c.prepare(OpSubmitBid, from, tenderID, tenderID, value, proposal)
	if err != nil {
		return nil, err
	}
	p.Owner = t.Owner
	p.Bidders = []common.Address{from}
	return p, nil
}

// AwardTender validates and prepares awarding bid index on tender id.
func (c *Client) AwardTender(ctx context.Context, id, index string) (*Prepared, error) {
	from, err := c.account()
	if err != nil {
		return nil, err
	}
	tenderID, err := ParseTenderID(id)
	if err != nil {
		return nil, err
	}
	bidIndex, err := parseUint(index, "bid_index")
	if err != nil {
		return nil, err
	}
	t, bids, err := c.tenderWithBids(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if err := validation.AwardTender(t, from, bidIndex, len(bids)); err != nil {
		return nil, err
	}
	return c.closing(OpAwardTender, from, t, bids, tenderID, bidIndex)
}

// CloseTender validates and prepares closing tender id without a winner.
func (c *Client) CloseTender(ctx context.Context, id string) (*Prepared, error) {
	from, err := c.account()
	if err != nil {
		return nil, err
	}
	tenderID, err := ParseTenderID(id)
	if err != nil {
		return nil, err
	}
	t, bids, err := c.tenderWithBids(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if err := validation.CloseTender(t, from); err != nil {
		return nil, err
	}
	return c.closing(OpCloseTender, from, t, bids, tenderID)
}

func (c *Client) closing(op Op, from common.Address, t *tender.Tender, bids []tender.Bid, args ...any) (*Prepared, error) {
	p, err := c.prepare(op, from, t.ID, args...)
	if err != nil {
		return nil, err
	}
	p.Owner = t.Owner
	seen := make(map[common.Address]bool, len(bids))
	for _, b := range bids {
		if !seen[b.Bidder] {
			seen[b.Bidder] = true
			p.Bidders = append(p.Bidders, b.Bidder)
		}
	}
	return p, nil
}

// ParseTenderID parses a non-negative decimal tender id.
func ParseTenderID(s string) (*big.Int, error) {
	id, err := parseUint(s, "tender_id")
	if err != nil {
		return nil, etendaerr.WithDetails(etendaerr.ErrInvalidTenderID, map[string]string{"tender_id": s})
	}
	return id, nil
}

func parseUint(s, field string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || strings.HasPrefix(s, "+") {
		return nil, etendaerr.WithDetails(etendaerr.ErrInvalidInput, map[string]string{field: s})
	}
	return v, nil
}
