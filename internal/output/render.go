package output

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/tender"
	"github.com/etenda/etenda/internal/txlifecycle"
)

// Tenders renders a tender list.
func (f *Formatter) Tenders(tenders []*tender.Tender, now time.Time) error {
	if f.IsJSON() {
		if tenders == nil {
			tenders = []*tender.Tender{}
		}
		return f.Print(tenders)
	}
	if len(tenders) == 0 {
		return f.Println("No tenders found.")
	}
	t := NewTable("ID", "TITLE", "BUDGET", "DEADLINE", "STATUS").AlignRight(0, 2)
	for _, td := range tenders {
		t.AddRow(td.ID.String(), truncate(td.Title, 40), chain.FormatAmount(td.Budget),
			f.Time(td.Deadline), status(td, now))
	}
	return t.Render(f.w)
}

type tenderDetail struct {
	Tender *tender.Tender `json:"tender"`
	Bids   []tender.Bid   `json:"bids"`
}

// Tender renders one tender and its bids.
func (f *Formatter) Tender(td *tender.Tender, bids []tender.Bid, now time.Time) error {
	if f.IsJSON() {
		if bids == nil {
			bids = []tender.Bid{}
		}
		return f.Print(tenderDetail{Tender: td, Bids: bids})
	}
	_ = f.Printf("Tender #%s: %s\n", td.ID, td.Title)
	_ = f.Printf("  Owner:    %s\n", td.Owner.Hex())
	_ = f.Printf("  Budget:   %s\n", chain.FormatAmount(td.Budget))
	_ = f.Printf("  Deadline: %s\n", f.Time(td.Deadline))
	_ = f.Printf("  Status:   %s\n", status(td, now))
	_ = f.Printf("\n%s\n\n", td.Description)
	return f.Bids(bids)
}

// Bids renders a bid list.
func (f *Formatter) Bids(bids []tender.Bid) error {
	if f.IsJSON() {
		if bids == nil {
			bids = []tender.Bid{}
		}
		return f.Print(bids)
	}
	if len(bids) == 0 {
		return f.Println("No bids yet.")
	}
	t := NewTable("TENDER", "#", "BIDDER", "AMOUNT", "SELECTED", "PROPOSAL").AlignRight(0, 1, 3)
	for _, b := range bids {
		id := "-"
		if b.TenderID != nil {
			id = b.TenderID.String()
		}
		selected := ""
		if b.Selected {
			selected = "yes"
		}
		t.AddRow(id, strconv.Itoa(b.Index), b.Bidder.Hex(), chain.FormatAmount(b.Amount), selected,
			truncate(b.Proposal, 40))
	}
	return t.Render(f.w)
}

type statsView struct {
	Account      string `json:"account"`
	TotalTenders int    `json:"total_tenders"`
	OpenTenders  int    `json:"open_tenders"`
	ActiveBids   int    `json:"active_bids"`
	WonBids      int    `json:"won_bids"`
	TotalBudget  string `json:"total_budget"`
}

// Stats renders an account dashboard.
func (f *Formatter) Stats(account common.Address, s tender.Stats) error {
	v := statsView{
		Account:      account.Hex(),
		TotalTenders: s.TotalTenders,
		OpenTenders:  s.OpenTenders,
		ActiveBids:   s.ActiveBids,
		WonBids:      s.WonBids,
		TotalBudget:  chain.FormatAmount(s.TotalBudget),
	}
	if f.IsJSON() {
		return f.Print(v)
	}
	_ = f.Printf("Dashboard for %s\n\n", v.Account)
	t := NewTable().AlignRight(1)
	t.AddRow("Tenders posted", strconv.Itoa(v.TotalTenders))
	t.AddRow("Open tenders", strconv.Itoa(v.OpenTenders))
	t.AddRow("Total budget", v.TotalBudget)
	t.AddRow("Active bids", strconv.Itoa(v.ActiveBids))
	t.AddRow("Bids won", strconv.Itoa(v.WonBids))
	return t.Render(f.w)
}

// TxView is the rendered outcome of a write.
type TxView struct {
	ID        string                   `json:"id"`
	Operation string                   `json:"operation"`
	State     string                   `json:"state"`
	TxHash    string                   `json:"tx_hash,omitempty"`
	TenderID  string                   `json:"tender_id,omitempty"`
	Block     uint64                   `json:"block,omitempty"`
	GasUsed   uint64                   `json:"gas_used,omitempty"`
	Explorer  string                   `json:"explorer,omitempty"`
	History   []txlifecycle.Transition `json:"history"`
}

// NewTxView builds the view of an outcome on network.
func NewTxView(o *txlifecycle.Outcome, tenderID *big.Int, network chain.Network) TxView {
	v := TxView{
		ID:        o.ID.String(),
		Operation: string(o.Operation),
		State:     string(o.State),
		History:   o.History,
	}
	if o.Broadcast() {
		v.TxHash = o.Handle.Hash.Hex()
		v.Explorer = network.TxURL(v.TxHash)
	}
	if tenderID != nil {
		v.TenderID = tenderID.String()
	}
	if o.Receipt != nil {
		if o.Receipt.BlockNumber != nil {
			v.Block = o.Receipt.BlockNumber.Uint64()
		}
		v.GasUsed = o.Receipt.GasUsed
	}
	return v
}

// Tx renders a write outcome.
func (f *Formatter) Tx(v TxView) error {
	if f.IsJSON() {
		return f.Print(v)
	}
	switch {
	case v.State == string(txlifecycle.StateConfirmed) && v.TenderID != "":
		f.headline(markDone, "%s confirmed (tender #%s)", v.Operation, v.TenderID)
	case v.State == string(txlifecycle.StateConfirmed):
		f.headline(markDone, "%s confirmed", v.Operation)
	default:
		f.headline(markWarn, "%s ended %s", v.Operation, v.State)
	}
	if v.TxHash != "" {
		_ = f.Printf("  tx:       %s\n", v.TxHash)
	}
	if v.Block != 0 {
		_ = f.Printf("  block:    %d (gas %d)\n", v.Block, v.GasUsed)
	}
	if v.Explorer != "" {
		_ = f.Printf("  explorer: %s\n", v.Explorer)
	}
	return nil
}

type receiptView struct {
	TxHash        string `json:"tx_hash"`
	State         string `json:"state"`
	Block         uint64 `json:"block,omitempty"`
	Confirmations uint64 `json:"confirmations"`
	Explorer      string `json:"explorer,omitempty"`
}

// Receipt renders a transaction status lookup.
func (f *Formatter) Receipt(r *txlifecycle.Receipt, network chain.Network) error {
	v := receiptView{
		TxHash:        r.Hash.Hex(),
		State:         string(r.State),
		Confirmations: r.Confirmations,
		Explorer:      network.TxURL(r.Hash.Hex()),
	}
	if r.Receipt != nil && r.Receipt.BlockNumber != nil {
		v.Block = r.Receipt.BlockNumber.Uint64()
	}
	if f.IsJSON() {
		return f.Print(v)
	}
	_ = f.Printf("Transaction %s\n", v.TxHash)
	_ = f.Printf("  state:         %s\n", v.State)
	if v.Block != 0 {
		_ = f.Printf("  block:         %d\n", v.Block)
		_ = f.Printf("  confirmations: %d\n", v.Confirmations)
	}
	if v.Explorer != "" {
		_ = f.Printf("  explorer:      %s\n", v.Explorer)
	}
	return nil
}

type networkView struct {
	Name     string `json:"name"`
	ChainID  uint64 `json:"chain_id"`
	Display  string `json:"display"`
	RPC      string `json:"rpc"`
	Contract string `json:"contract,omitempty"`
	Testnet  bool   `json:"testnet"`
}

// Networks renders the known networks and their ledger deployments.
func (f *Formatter) Networks(networks []chain.Network, book chain.AddressBook, selected string) error {
	views := make([]networkView, 0, len(networks))
	for _, n := range networks {
		v := networkView{Name: n.Name, ChainID: n.ChainID, Display: n.Display, RPC: n.DefaultRPC, Testnet: n.Testnet}
		if addr, ok := book.Resolve(n.ChainID); ok {
			v.Contract = addr.Hex()
		}
		views = append(views, v)
	}
	if f.IsJSON() {
		return f.Print(views)
	}
	t := NewTable("", "NAME", "CHAIN ID", "CONTRACT").AlignRight(2)
	for _, v := range views {
		mark := ""
		if v.Name == selected {
			mark = "*"
		}
		contract := v.Contract
		if contract == "" {
			contract = "-"
		}
		t.AddRow(mark, v.Name, strconv.FormatUint(v.ChainID, 10), contract)
	}
	return t.Render(f.w)
}

func status(t *tender.Tender, now time.Time) string {
	if t.Status == tender.StatusOpen && t.Expired(now) {
		return "Open (bidding ended)"
	}
	return t.Status.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n-3]))
}
