package txerror

import (
	"errors"

	"github.com/etenda/etenda/internal/ledger"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

//nolint:gochecknoglobals // message templates
var reasonMessages = map[ledger.Reason]string{
	ledger.BidExceedsBudget: "Your bid exceeds the tender budget.",
	ledger.DeadlinePassed:   "The bidding deadline for this tender has passed.",
	ledger.InvalidBidIndex:  "That bid does not exist on this tender.",
	ledger.InvalidBudget:    "The budget must be greater than zero.",
	ledger.InvalidDeadline:  "The deadline must be in the future.",
	ledger.NotTenderOwner:   "Only the tender owner can do that.",
	ledger.OwnerCannotBid:   "You cannot bid on your own tender.",
	ledger.TenderNotExists:  "That tender does not exist.",
	ledger.TenderNotOpen:    "This tender is no longer open.",
	ledger.EmptyTitle:       "The title cannot be empty.",
	ledger.EmptyDescription: "The description cannot be empty.",
	ledger.InvalidBidAmount: "The bid amount must be greater than zero.",
}

// ReasonMessage returns the template for a reason code.
func ReasonMessage(r ledger.Reason) (string, bool) {
	m, ok := reasonMessages[r]
	return m, ok
}

// UserMessage renders err for a person. Each kind and each reason has
// exactly one template; unknown failures show the raw message.
func UserMessage(err error) string {
	ee := Translate(err)
	if ee == nil {
		return ""
	}

	switch ee.Kind {
	case etendaerr.KindValidation, etendaerr.KindContract:
		if m, ok := reasonMessages[ledger.Reason(ee.Reason)]; ok {
			return m
		}
		return "The ledger rejected the transaction."
	case etendaerr.KindInput:
		switch {
		case errors.Is(ee, etendaerr.ErrPrecision):
			return "Amounts support at most 18 decimal places."
		case errors.Is(ee, etendaerr.ErrInvalidDeadlineInput):
			return "The deadline could not be understood. Use a date like 2030-01-31 or 2030-01-31 17:00."
		default:
			return ee.Message
		}
	case etendaerr.KindNotFound:
		return "That tender does not exist."
	case etendaerr.KindUserRejected:
		return "You rejected the transaction."
	case etendaerr.KindNoProvider:
		return "No wallet connected. Configure an RPC endpoint and a signing key."
	case etendaerr.KindUnsupportedNetwork:
		return "This network is not supported. Switch to Base or Base Sepolia."
	case etendaerr.KindWalletChanged:
		return "Your wallet account or network changed. Please review and try again."
	case etendaerr.KindGasEstimationFailed:
		return "The transaction would fail or cannot pay for gas. Check your balance and inputs."
	case etendaerr.KindNonceConflict:
		return "Another transaction from this account is in flight. Please try again."
	case etendaerr.KindTimedOut:
		if tx := ee.Details["tx"]; tx != "" {
			return "The transaction was submitted but not confirmed yet. Check it later with 'etenda tx status " + tx + "'."
		}
		return "The operation timed out before the transaction was confirmed."
	case etendaerr.KindUnknownFailure:
		raw := ee.Message
		if ee.Cause != nil {
			raw = ee.Cause.Error()
		}
		return raw + " Please try again."
	case etendaerr.KindGeneral:
	}
	return ee.Message
}
