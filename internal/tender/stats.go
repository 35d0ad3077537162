package tender

import "math/big"

// Stats summarises an account's activity on the ledger.
type Stats struct {
	TotalTenders int      `json:"total_tenders"`
	OpenTenders  int      `json:"open_tenders"`
	ActiveBids   int      `json:"active_bids"`
	WonBids      int      `json:"won_bids"`
	TotalBudget  *big.Int `json:"-"`
}

// ComputeStats derives Stats from an account's own tenders and bids.
func ComputeStats(tenders []*Tender, bids []Bid) Stats {
	s := Stats{TotalBudget: new(big.Int)}
	for _, t := range tenders {
		if t == nil {
			continue
		}
		s.TotalTenders++
		if t.Status == StatusOpen {
			s.OpenTenders++
		}
		if t.Budget != nil {
			s.TotalBudget.Add(s.TotalBudget, t.Budget)
		}
	}
	for _, b := range bids {
		if b.Selected {
			s.WonBids++
		} else {
			s.ActiveBids++
		}
	}
	return s
}
