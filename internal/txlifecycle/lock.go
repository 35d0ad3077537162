package txlifecycle

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// accountLocks serializes writes per sending account. Waiting honors the
// caller's context.
type accountLocks struct {
	mu    sync.Mutex
	slots map[common.Address]chan struct{}
}

func newAccountLocks() *accountLocks {
	return &accountLocks{slots: make(map[common.Address]chan struct{})}
}

func (a *accountLocks) slot(account common.Address) chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch, ok := a.slots[account]
	if !ok {
		ch = make(chan struct{}, 1)
		a.slots[account] = ch
	}
	return ch
}

// lock blocks until account is free or ctx is done. The returned func
// releases the lock.
func (a *accountLocks) lock(ctx context.Context, account common.Address) (func(), error) {
	ch := a.slot(account)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
