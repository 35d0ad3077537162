// Package tender holds the domain model mirrored from the ledger.
package tender

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/ledger"
)

// Status is the ledger-owned lifecycle state of a tender.
type Status uint8

// Status values, in ledger ordinal order.
const (
	StatusOpen Status = iota
	StatusClosed
	StatusAwarded
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusClosed:
		return "Closed"
	case StatusAwarded:
		return "Awarded"
	default:
		return "Unknown"
	}
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return StatusOpen, nil
	case "closed":
		return StatusClosed, nil
	case "awarded":
		return StatusAwarded, nil
	default:
		return 0, fmt.Errorf("unknown tender status %q", s)
	}
}

// Tender is a request for bids. Budget is 18-decimal fixed point.
type Tender struct {
	ID          *big.Int
	Owner       common.Address
	Title       string
	Description string
	Budget      *big.Int
	Deadline    time.Time
	Status      Status
}

// IsTerminal reports whether the tender can no longer change.
func (t *Tender) IsTerminal() bool {
	return t.Status == StatusClosed || t.Status == StatusAwarded
}

// Expired reports whether the bidding deadline has passed at now.
func (t *Tender) Expired(now time.Time) bool {
	return !now.Before(t.Deadline)
}

// FromRecord converts the ledger tuple into a Tender.
func FromRecord(r ledger.TenderRecord) *Tender {
	return &Tender{
		ID:          r.Id,
		Owner:       r.Owner,
		Title:       r.Title,
		Description: r.Description,
		Budget:      r.Budget,
		Deadline:    chain.UnixToDeadline(r.Deadline),
		Status:      Status(r.Status),
	}
}

// Bid is an offer against a tender. TenderID is nil when the ledger call
// that produced the bid does not report it.
type Bid struct {
	TenderID *big.Int
	Index    int
	Bidder   common.Address
	Amount   *big.Int
	Proposal string
	Selected bool
}

// BidFromRecord converts the ledger tuple into a Bid.
func BidFromRecord(tenderID *big.Int, index int, r ledger.BidRecord) Bid {
	return Bid{
		TenderID: tenderID,
		Index:    index,
		Bidder:   r.Bidder,
		Amount:   r.Amount,
		Proposal: r.Proposal,
		Selected: r.Selected,
	}
}

type tenderJSON struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Budget      string `json:"budget"`
	BudgetWei   string `json:"budget_wei"`
	Deadline    string `json:"deadline"`
	Status      string `json:"status"`
}

// MarshalJSON renders amounts as decimal strings and the deadline as RFC3339.
func (t Tender) MarshalJSON() ([]byte, error) {
	return json.Marshal(tenderJSON{
		ID:          bigString(t.ID),
		Owner:       t.Owner.Hex(),
		Title:       t.Title,
		Description: t.Description,
		Budget:      chain.FormatAmount(t.Budget),
		BudgetWei:   bigString(t.Budget),
		Deadline:    t.Deadline.UTC().Format(time.RFC3339),
		Status:      t.Status.String(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON. The wei field is authoritative.
func (t *Tender) UnmarshalJSON(b []byte) error {
	var raw tenderJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, ok := new(big.Int).SetString(raw.ID, 10)
	if !ok {
		return fmt.Errorf("tender: invalid id %q", raw.ID)
	}
	budget, ok := new(big.Int).SetString(raw.BudgetWei, 10)
	if !ok {
		return fmt.Errorf("tender: invalid budget %q", raw.BudgetWei)
	}
	deadline, err := time.Parse(time.RFC3339, raw.Deadline)
	if err != nil {
		return fmt.Errorf("tender: invalid deadline: %w", err)
	}
	status, err := ParseStatus(raw.Status)
	if err != nil {
		return err
	}
	*t = Tender{
		ID:          id,
		Owner:       common.HexToAddress(raw.Owner),
		Title:       raw.Title,
		Description: raw.Description,
		Budget:      budget,
		Deadline:    deadline.UTC(),
		Status:      status,
	}
	return nil
}

type bidJSON struct {
	TenderID  string `json:"tender_id,omitempty"`
	Index     int    `json:"index"`
	Bidder    string `json:"bidder"`
	Amount    string `json:"amount"`
	AmountWei string `json:"amount_wei"`
	Proposal  string `json:"proposal"`
	Selected  bool   `json:"selected"`
}

// MarshalJSON renders the amount as a decimal string.
func (b Bid) MarshalJSON() ([]byte, error) {
	out := bidJSON{
		Index:     b.Index,
		Bidder:    b.Bidder.Hex(),
		Amount:    chain.FormatAmount(b.Amount),
		AmountWei: bigString(b.Amount),
		Proposal:  b.Proposal,
		Selected:  b.Selected,
	}
	if b.TenderID != nil {
		out.TenderID = b.TenderID.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (b *Bid) UnmarshalJSON(data []byte) error {
	var raw bidJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, ok := new(big.Int).SetString(raw.AmountWei, 10)
	if !ok {
		return fmt.Errorf("bid: invalid amount %q", raw.AmountWei)
	}
	*b = Bid{
		Index:    raw.Index,
		Bidder:   common.HexToAddress(raw.Bidder),
		Amount:   amount,
		Proposal: raw.Proposal,
		Selected: raw.Selected,
	}
	if raw.TenderID != "" {
		id, ok := new(big.Int).SetString(raw.TenderID, 10)
		if !ok {
			return fmt.Errorf("bid: invalid tender id %q", raw.TenderID)
		}
		b.TenderID = id
	}
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
