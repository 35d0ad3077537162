// Package chain provides the network table, fixed-point amounts, deadline
// parsing, and the retry and rate limiting helpers shared by ledger clients.
package chain

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/ethereum/go-ethereum/common"

	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// Known chain ids.
const (
	EthereumMainnet uint64 = 1
	Sepolia         uint64 = 11155111
	BaseMainnet     uint64 = 8453
	BaseSepolia     uint64 = 84532
)

// DefaultNetworkName is used when neither config nor flags select a network.
const DefaultNetworkName = "base-sepolia"

// maxSuggestDistance bounds how far a misspelled network name may be from a suggestion.
const maxSuggestDistance = 3

// Network describes an EVM network the ledger may be deployed on.
type Network struct {
	Name       string
	ChainID    uint64
	Display    string
	DefaultRPC string
	Explorer   string
	Testnet    bool
}

// TxURL returns the explorer link for a transaction hash, if the network has an explorer.
func (n Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}

//nolint:gochecknoglobals // static network table
var networks = []Network{
	{
		Name:       "base",
		ChainID:    BaseMainnet,
		Display:    "Base",
		DefaultRPC: "https://mainnet.base.org",
		Explorer:   "https://basescan.org",
	},
	{
		Name:       "base-sepolia",
		ChainID:    BaseSepolia,
		Display:    "Base Sepolia",
		DefaultRPC: "https://sepolia.base.org",
		Explorer:   "https://sepolia.basescan.org",
		Testnet:    true,
	},
	{
		Name:       "ethereum",
		ChainID:    EthereumMainnet,
		Display:    "Ethereum",
		DefaultRPC: "https://ethereum-rpc.publicnode.com",
		Explorer:   "https://etherscan.io",
	},
	{
		Name:       "sepolia",
		ChainID:    Sepolia,
		Display:    "Sepolia",
		DefaultRPC: "https://ethereum-sepolia-rpc.publicnode.com",
		Explorer:   "https://sepolia.etherscan.io",
		Testnet:    true,
	},
}

// Networks returns the known networks sorted by name.
func Networks() []Network {
	out := make([]Network, len(networks))
	copy(out, networks)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NetworkByID looks up a known network by chain id.
func NetworkByID(id uint64) (Network, bool) {
	for _, n := range networks {
		if n.ChainID == id {
			return n, true
		}
	}
	return Network{}, false
}

// NetworkByName looks up a known network by name. Unknown names fail with
// an unsupported network error suggesting the closest known name.
func NetworkByName(name string) (Network, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range networks {
		if n.Name == name {
			return n, nil
		}
	}

	err := etendaerr.WithDetails(etendaerr.ErrUnsupportedNetwork, map[string]string{"network": name})
	if s := SuggestNetwork(name); s != "" {
		return Network{}, etendaerr.WithSuggestion(err, fmt.Sprintf("did you mean '%s'?", s))
	}
	return Network{}, etendaerr.WithSuggestion(err, "run 'etenda network list' to see known networks")
}

// SuggestNetwork returns the known network name closest to input, or "" if
// none is close enough.
func SuggestNetwork(input string) string {
	best, bestDist := "", math.MaxInt
	for _, n := range networks {
		d := levenshtein.ComputeDistance(input, n.Name)
		if d < bestDist {
			best, bestDist = n.Name, d
		}
	}
	if bestDist <= maxSuggestDistance {
		return best
	}
	return ""
}

// AddressBook maps chain ids to deployed ledger contract addresses.
type AddressBook map[uint64]common.Address

// DefaultAddressBook returns the ledger deployments known at build time.
func DefaultAddressBook() AddressBook {
	return AddressBook{
		BaseMainnet: common.HexToAddress("0x54dada9778e511291f41858be89a23a0d3eaec22"),
		BaseSepolia: common.HexToAddress("0x7e767A270111a8957FCc69ee3ea95bD0c9F67708"),
	}
}

// Resolve returns the contract address for a chain id.
func (b AddressBook) Resolve(chainID uint64) (common.Address, bool) {
	addr, ok := b[chainID]
	if !ok || addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}

// With returns a copy of the book with overrides applied. Keys are chain ids.
func (b AddressBook) With(overrides map[uint64]string) (AddressBook, error) {
	out := make(AddressBook, len(b)+len(overrides))
	for k, v := range b {
		out[k] = v
	}
	for id, raw := range overrides {
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, etendaerr.WithDetails(err, map[string]string{"chain_id": fmt.Sprint(id)})
		}
		out[id] = addr
	}
	return out, nil
}

// ParseAddress validates and parses a 0x-prefixed hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, etendaerr.WithDetails(etendaerr.ErrInvalidAddress, map[string]string{"address": s})
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, etendaerr.WithDetails(etendaerr.ErrInvalidAddress, map[string]string{"address": s})
	}
	return common.HexToAddress(s), nil
}
