package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// JSON-RPC codes providers use for request throttling.
const (
	rpcLimitExceeded = -32005
	rpcTooManyReqs   = -32029
)

// Backoff is the retry policy for ledger reads. Writes are never retried.
type Backoff struct {
	Attempts int           // total tries, including the first
	Base     time.Duration // wait before the first retry
	Cap      time.Duration // longest single wait

	// OnRetry, when set, is told about every retry before the wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultBackoff tries three times with waits of roughly 250ms and 500ms.
func DefaultBackoff() Backoff {
	return Backoff{Attempts: 3, Base: 250 * time.Millisecond, Cap: 2 * time.Second}
}

// Retry calls op until it succeeds, fails with a non-transient error, or
// the attempts run out. Waiting stops early when ctx is done.
func Retry[T any](ctx context.Context, b Backoff, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := max(b.Attempts, 1)
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil || !Transient(err) {
			return v, err
		}
		if attempt == attempts {
			return v, fmt.Errorf("giving up after %d attempts: %w", attempts, err)
		}

		wait := b.wait(attempt)
		if b.OnRetry != nil {
			b.OnRetry(attempt, wait, err)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return v, ctx.Err()
		case <-t.C:
		}
	}
}

// wait doubles Base per retry up to Cap and picks a point in the upper half.
func (b Backoff) wait(attempt int) time.Duration {
	d := b.Base << (attempt - 1)
	if d > b.Cap || d <= 0 {
		d = b.Cap
	}
	if d < 2 {
		return d
	}
	return d/2 + rand.N(d/2) //nolint:gosec // jitter
}

// Transient reports whether a failed node call may succeed when repeated:
// connection trouble, throttling and server-side 5xx. Reverts, bad
// requests and cancellations are final.
func Transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, etendaerr.ErrNetworkError):
		return true
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		code := rpcErr.ErrorCode()
		return code == rpcLimitExceeded || code == rpcTooManyReqs
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
