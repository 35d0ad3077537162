package eth

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccount  = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	otherAccount = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
)

func TestNonceManager_Progression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pending  []uint64
		expected []uint64
	}{
		{"node stays behind local", []uint64{0, 0, 0, 0}, []uint64{0, 1, 2, 3}},
		{"node catches up", []uint64{0, 0, 0, 3}, []uint64{0, 1, 2, 3}},
		{"node jumps ahead", []uint64{0, 0, 10}, []uint64{0, 1, 10}},
		{"synchronized", []uint64{0, 1, 2, 3}, []uint64{0, 1, 2, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			nm := NewNonceManager()
			for i, p := range tc.pending {
				assert.Equal(t, tc.expected[i], nm.Next(testAccount, p), "iteration %d", i)
			}
		})
	}
}

func TestNonceManager_AccountsAreIndependent(t *testing.T) {
	t.Parallel()

	nm := NewNonceManager()
	assert.Equal(t, uint64(0), nm.Next(testAccount, 0))
	assert.Equal(t, uint64(5), nm.Next(otherAccount, 5))
	assert.Equal(t, uint64(1), nm.Next(testAccount, 0))
	assert.Equal(t, uint64(6), nm.Next(otherAccount, 5))

	nm.Reset(testAccount)
	assert.Equal(t, uint64(0), nm.Next(testAccount, 0))
	assert.Equal(t, uint64(7), nm.Next(otherAccount, 5))
}

func TestNonceManager_Release(t *testing.T) {
	t.Parallel()

	nm := NewNonceManager()
	n := nm.Next(testAccount, 4)
	require.Equal(t, uint64(4), n)

	nm.Release(testAccount, n)
	assert.Equal(t, uint64(4), nm.Next(testAccount, 4), "released nonce is reused")

	a := nm.Next(testAccount, 4)
	b := nm.Next(testAccount, 4)
	nm.Release(testAccount, a)
	assert.Equal(t, b+1, nm.Next(testAccount, 4), "stale release is ignored")
}

func TestNonceManager_Concurrent(t *testing.T) {
	t.Parallel()

	nm := NewNonceManager()
	const n = 100
	var wg sync.WaitGroup
	results := make(chan uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- nm.Next(testAccount, 0)
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uint64]bool, n)
	for r := range results {
		require.False(t, seen[r], "nonce %d handed out twice", r)
		seen[r] = true
	}
	assert.Len(t, seen, n)
}
