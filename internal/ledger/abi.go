// Package ledger binds the tender ledger contract ABI: method packing, typed
// result shapes, named revert reasons and events.
package ledger

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

//go:embed tender.abi.json
var tenderABIJSON string

// Ledger method names.
const (
	MethodGetTenderDetails = "getTenderDetails"
	MethodGetRecentTenders = "getRecentTenders"
	MethodGetUserTenders   = "getUserTenders"
	MethodGetUserBids      = "getUserBids"
	MethodGetTenderBids    = "getTenderBids"
	MethodGetTenderCount   = "getTenderCount"
	MethodPostTender       = "postTender"
	MethodSubmitBid        = "submitBid"
	MethodAwardTender      = "awardTender"
	MethodCloseTender      = "closeTender"
)

//nolint:gochecknoglobals // parsed once from the embedded JSON
var (
	parsedOnce sync.Once
	parsed     abi.ABI
	parseErr   error
)

// ABI returns the parsed ledger ABI. It panics if the embedded JSON is
// malformed, which can only happen at build time.
func ABI() abi.ABI {
	parsedOnce.Do(func() {
		parsed, parseErr = abi.JSON(strings.NewReader(tenderABIJSON))
	})
	if parseErr != nil {
		panic(fmt.Sprintf("ledger: invalid embedded ABI: %v", parseErr))
	}
	return parsed
}

// TenderRecord mirrors the ledger's TenderDetails tuple.
type TenderRecord struct {
	Id          *big.Int //nolint:revive // field name must match the ABI tuple
	Owner       common.Address
	Title       string
	Description string
	Budget      *big.Int
	Deadline    *big.Int
	Status      uint8
}

// BidRecord mirrors the ledger's Bid tuple.
type BidRecord struct {
	Bidder   common.Address
	Amount   *big.Int
	Proposal string
	Selected bool
}

// Pack encodes a call to method.
func Pack(method string, args ...any) ([]byte, error) {
	data, err := ABI().Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	return data, nil
}

// UnpackTender decodes the single tuple returned by getTenderDetails.
func UnpackTender(data []byte) (TenderRecord, error) {
	out, err := unpackOne(MethodGetTenderDetails, data)
	if err != nil {
		return TenderRecord{}, err
	}
	return *abi.ConvertType(out, new(TenderRecord)).(*TenderRecord), nil
}

// UnpackTenders decodes the tuple array returned by getRecentTenders.
func UnpackTenders(data []byte) ([]TenderRecord, error) {
	out, err := unpackOne(MethodGetRecentTenders, data)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out, new([]TenderRecord)).(*[]TenderRecord), nil
}

// UnpackBids decodes the bid array returned by method (getTenderBids or getUserBids).
func UnpackBids(method string, data []byte) ([]BidRecord, error) {
	out, err := unpackOne(method, data)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out, new([]BidRecord)).(*[]BidRecord), nil
}

// UnpackIDs decodes the id array returned by getUserTenders.
func UnpackIDs(data []byte) ([]*big.Int, error) {
	out, err := unpackOne(MethodGetUserTenders, data)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out, new([]*big.Int)).(*[]*big.Int), nil
}

// UnpackUint decodes a single uint256 result (getTenderCount, postTender).
func UnpackUint(method string, data []byte) (*big.Int, error) {
	out, err := unpackOne(method, data)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out, new(*big.Int)).(**big.Int), nil
}

func unpackOne(method string, data []byte) (any, error) {
	out, err := ABI().Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unpacking %s: expected 1 value, got %d", method, len(out))
	}
	return out[0], nil
}

// Selector returns the 4-byte keccak selector of a canonical signature
// such as "Error(string)".
func Selector(signature string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(signature))
	var sel [4]byte
	copy(sel[:], h.Sum(nil))
	return sel
}
