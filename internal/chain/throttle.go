package chain

import (
	"context"

	"golang.org/x/time/rate"
)

// Defaults suited to public RPC endpoints.
const (
	DefaultRatePerSecond = 10
	DefaultBurst         = 20
)

// Throttle spaces node calls with a token bucket. A nil *Throttle never
// blocks, which is what NewThrottle returns for a non-positive rate.
type Throttle struct {
	bucket *rate.Limiter
}

// NewThrottle allows perSecond calls on average with bursts of burst.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if perSecond <= 0 {
		return nil
	}
	return &Throttle{bucket: rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))}
}

// Wait blocks until the next call may go out. It fails at once when the
// wait would outlast ctx's deadline.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return ctx.Err()
	}
	return t.bucket.Wait(ctx)
}
