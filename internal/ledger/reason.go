package ledger

import (
	"regexp"
	"strings"
)

// Reason is a machine-readable rejection reason. The ledger reasons are the
// contract's custom errors; the remaining ones are checked locally only.
type Reason string

// Ledger reasons.
const (
	BidExceedsBudget Reason = "BidExceedsBudget"
	DeadlinePassed   Reason = "DeadlinePassed"
	InvalidBidIndex  Reason = "InvalidBidIndex"
	InvalidBudget    Reason = "InvalidBudget"
	InvalidDeadline  Reason = "InvalidDeadline"
	NotTenderOwner   Reason = "NotTenderOwner"
	OwnerCannotBid   Reason = "OwnerCannotBid"
	TenderNotExists  Reason = "TenderNotExists"
	TenderNotOpen    Reason = "TenderNotOpen"
)

// Local reasons.
const (
	EmptyTitle       Reason = "EmptyTitle"
	EmptyDescription Reason = "EmptyDescription"
	InvalidBidAmount Reason = "InvalidBidAmount"
)

//nolint:gochecknoglobals // static reason tables
var (
	ledgerReasons = []Reason{
		BidExceedsBudget, DeadlinePassed, InvalidBidIndex, InvalidBudget,
		InvalidDeadline, NotTenderOwner, OwnerCannotBid, TenderNotExists, TenderNotOpen,
	}
	localReasons = []Reason{EmptyTitle, EmptyDescription, InvalidBidAmount}

	reasonPattern = regexp.MustCompile(`\b(` + joinReasons(ledgerReasons) + `)\b`)
)

func joinReasons(rs []Reason) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, "|")
}

// LedgerReasons returns the contract's custom error names.
func LedgerReasons() []Reason {
	out := make([]Reason, len(ledgerReasons))
	copy(out, ledgerReasons)
	return out
}

// IsLedgerReason reports whether r is one of the contract's custom errors.
func IsLedgerReason(r Reason) bool {
	for _, lr := range ledgerReasons {
		if r == lr {
			return true
		}
	}
	return false
}

// ParseReason returns the reason named s, ledger or local.
func ParseReason(s string) (Reason, bool) {
	s = strings.TrimSpace(s)
	for _, r := range ledgerReasons {
		if string(r) == s {
			return r, true
		}
	}
	for _, r := range localReasons {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// FindReason extracts the first ledger reason name that appears as a whole
// word in msg, as nodes often embed it in "execution reverted: X".
func FindReason(msg string) (Reason, bool) {
	m := reasonPattern.FindString(msg)
	if m == "" {
		return "", false
	}
	return Reason(m), true
}
