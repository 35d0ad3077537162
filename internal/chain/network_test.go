package chain_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/chain"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

func TestNetworkByName(t *testing.T) {
	t.Parallel()

	n, err := chain.NetworkByName(" Base-Sepolia ")
	require.NoError(t, err)
	assert.Equal(t, chain.BaseSepolia, n.ChainID)

	_, err = chain.NetworkByName("base-sepolai")
	require.ErrorIs(t, err, etendaerr.ErrUnsupportedNetwork)
	var ee *etendaerr.EtendaError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Suggestion, "base-sepolia")

	_, err = chain.NetworkByName("solana-devnet-classic")
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Suggestion, "network list")
}

func TestNetworkByID(t *testing.T) {
	t.Parallel()

	n, ok := chain.NetworkByID(8453)
	require.True(t, ok)
	assert.Equal(t, "base", n.Name)
	assert.Equal(t, "https://basescan.org/tx/0xab", n.TxURL("0xab"))

	_, ok = chain.NetworkByID(137)
	assert.False(t, ok)
}

func TestNetworksSorted(t *testing.T) {
	t.Parallel()

	nets := chain.Networks()
	require.Len(t, nets, 4)
	for i := 1; i < len(nets); i++ {
		assert.Less(t, nets[i-1].Name, nets[i].Name)
	}
}

func TestAddressBook(t *testing.T) {
	t.Parallel()

	book := chain.DefaultAddressBook()
	addr, ok := book.Resolve(chain.BaseSepolia)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x7e767A270111a8957FCc69ee3ea95bD0c9F67708"), addr)

	_, ok = book.Resolve(chain.Sepolia)
	assert.False(t, ok)

	custom := "0x00000000000000000000000000000000000000aa"
	extended, err := book.With(map[uint64]string{chain.Sepolia: custom})
	require.NoError(t, err)
	addr, ok = extended.Resolve(chain.Sepolia)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(custom), addr)

	_, ok = book.Resolve(chain.Sepolia)
	assert.False(t, ok, "original book must not change")

	_, err = book.With(map[uint64]string{1: "not-an-address"})
	require.ErrorIs(t, err, etendaerr.ErrInvalidAddress)
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	_, err := chain.ParseAddress("742d35Cc6634C0532925a3b844Bc454e4438f44e")
	require.ErrorIs(t, err, etendaerr.ErrInvalidAddress)

	a, err := chain.ParseAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	require.NoError(t, err)
	assert.Equal(t, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", a.Hex())
}
