package tender

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etenda/etenda/internal/txlifecycle"
)

// PostTenderRequest carries user input for a new tender.
type PostTenderRequest struct {
	Title       string
	Description string
	Budget      string // decimal, 18 fractional digits at most
	Deadline    string
}

// SubmitBidRequest carries user input for a bid.
type SubmitBidRequest struct {
	TenderID string
	Amount   string
	Proposal string
}

// AwardTenderRequest selects the winning bid by index.
type AwardTenderRequest struct {
	TenderID string
	BidIndex string
}

// CloseTenderRequest closes a tender without a winner.
type CloseTenderRequest struct {
	TenderID string
}

// Result is the outcome of one write. TenderID is the tender the write
// touched; for a new tender it is read from the receipt.
type Result struct {
	Outcome  *txlifecycle.Outcome
	TenderID *big.Int
}

// Hash returns the transaction hash, zero when nothing was broadcast.
func (r *Result) Hash() common.Hash {
	if r == nil || r.Outcome == nil {
		return common.Hash{}
	}
	return r.Outcome.Handle.Hash
}
