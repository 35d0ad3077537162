package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// readTimeout bounds commands that only query the ledger. Writes get the
// transaction timeout on top.
const readTimeout = 60 * time.Second

// interruptible derives the context a command runs under. It is canceled on
// SIGINT or SIGTERM so a pending write stops waiting and reports its hash.
// A positive d also bounds it in time.
func interruptible(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}
