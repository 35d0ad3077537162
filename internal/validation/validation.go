// Package validation checks tender operations against the ledger's rules
// before anything is signed. All functions are pure; time is injected.
//
// Checks run in the order the ledger applies them (ownership, then status,
// then arguments) so a local rejection names the reason the ledger would
// have reverted with.
package validation

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etenda/etenda/internal/ledger"
	"github.com/etenda/etenda/internal/tender"
	"github.com/etenda/etenda/internal/txerror"
)

// PostTenderInput is a tender about to be posted.
type PostTenderInput struct {
	Title       string
	Description string
	Budget      *big.Int
	Deadline    time.Time
}

// PostTender validates a new tender.
func PostTender(in PostTenderInput, now time.Time) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return txerror.Validation(ledger.EmptyTitle)
	case strings.TrimSpace(in.Description) == "":
		return txerror.Validation(ledger.EmptyDescription)
	case !positive(in.Budget):
		return txerror.Validation(ledger.InvalidBudget)
	case !in.Deadline.After(now):
		return txerror.Validation(ledger.InvalidDeadline)
	}
	return nil
}

// SubmitBid validates a bid by bidder against t.
func SubmitBid(t *tender.Tender, bidder common.Address, amount *big.Int, now time.Time) error {
	switch {
	case bidder == t.Owner:
		return txerror.Validation(ledger.OwnerCannotBid)
	case t.Status != tender.StatusOpen:
		return txerror.Validation(ledger.TenderNotOpen)
	case t.Expired(now):
		return txerror.Validation(ledger.DeadlinePassed)
	case !positive(amount):
		return txerror.Validation(ledger.InvalidBidAmount)
	case t.Budget == nil || amount.Cmp(t.Budget) > 0:
		return txerror.Validation(ledger.BidExceedsBudget)
	}
	return nil
}

// AwardTender validates awarding bid index of bidCount bids on t by caller.
func AwardTender(t *tender.Tender, caller common.Address, index *big.Int, bidCount int) error {
	switch {
	case caller != t.Owner:
		return txerror.Validation(ledger.NotTenderOwner)
	case t.Status != tender.StatusOpen:
		return txerror.Validation(ledger.TenderNotOpen)
	case index == nil || index.Sign() < 0 || index.Cmp(big.NewInt(int64(bidCount))) >= 0:
		return txerror.Validation(ledger.InvalidBidIndex)
	}
	return nil
}

// CloseTender validates closing t by caller.
func CloseTender(t *tender.Tender, caller common.Address) error {
	switch {
	case caller != t.Owner:
		return txerror.Validation(ledger.NotTenderOwner)
	case t.Status != tender.StatusOpen:
		return txerror.Validation(ledger.TenderNotOpen)
	}
	return nil
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
