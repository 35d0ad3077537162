package eth

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NonceManager tracks the next nonce per account so back-to-back writes do
// not reuse a nonce the node has not yet reported as pending.
type NonceManager struct {
	mu     sync.Mutex
	nonces map[common.Address]uint64 // account -> next nonce (one past the highest used)
}

// NewNonceManager creates a new NonceManager.
func NewNonceManager() *NonceManager {
	return &NonceManager{
		nonces: make(map[common.Address]uint64),
	}
}

// Next returns the nonce to use for account: the higher of the node's
// pending nonce and the locally tracked one. The local value then advances.
func (nm *NonceManager) Next(account common.Address, pending uint64) uint64 {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nonce := pending
	if local, ok := nm.nonces[account]; ok && local > pending {
		nonce = local
	}
	nm.nonces[account] = nonce + 1
	return nonce
}

// Release returns an allocated nonce that was never broadcast. It only has
// an effect when nonce is the most recent allocation for account.
func (nm *NonceManager) Release(account common.Address, nonce uint64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if local, ok := nm.nonces[account]; ok && local == nonce+1 {
		nm.nonces[account] = nonce
	}
}

// Reset clears local tracking for account so the next allocation follows
// the node again. Used after a nonce conflict.
func (nm *NonceManager) Reset(account common.Address) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.nonces, account)
}
