package repository

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etenda/etenda/internal/tender"
)

// ViewKind names a cached read.
type ViewKind string

// Cached reads.
const (
	ViewRecent      ViewKind = "recent"
	ViewUserTenders ViewKind = "user_tenders"
	ViewUserBids    ViewKind = "user_bids"
	ViewTenderBids  ViewKind = "tender_bids"
	ViewTender      ViewKind = "tender"
)

// View identifies one cached read and its parameter.
type View struct {
	Kind  ViewKind
	Param string
}

// Recent is the newest-tenders view for limit.
func Recent(limit int) View { return View{Kind: ViewRecent, Param: strconv.Itoa(limit)} }

// UserTenders is the view of tenders owned by account.
func UserTenders(account common.Address) View {
	return View{Kind: ViewUserTenders, Param: strings.ToLower(account.Hex())}
}

// UserBids is the view of bids placed by account.
func UserBids(account common.Address) View {
	return View{Kind: ViewUserBids, Param: strings.ToLower(account.Hex())}
}

// TenderBids is the view of bids on tender id.
func TenderBids(id *big.Int) View { return View{Kind: ViewTenderBids, Param: id.String()} }

// Tender is the single-tender view.
func Tender(id *big.Int) View { return View{Kind: ViewTender, Param: id.String()} }

func (v View) String() string { return string(v.Kind) + ":" + v.Param }

// Value is an immutable snapshot of a view. Callers must not modify it.
type Value struct {
	Tenders   []*tender.Tender `json:"tenders,omitempty"`
	Tender    *tender.Tender   `json:"tender,omitempty"`
	Bids      []tender.Bid     `json:"bids,omitempty"`
	FetchedAt time.Time        `json:"fetched_at"`
}
