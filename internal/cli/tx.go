package cli

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/txlifecycle"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// txCmd is the parent command for transaction lookups.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Inspect ledger transactions",
	Long:  `Inspect transactions sent to the ledger.`,
}

//nolint:gochecknoglobals // flag value
var txWait bool

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var txStatusCmd = &cobra.Command{
	Use:   "status <hash>",
	Short: "Show whether a transaction is pending, confirmed or reverted",
	Long: `Show where a broadcast transaction stands. Use it after a write timed out:
the transaction may still be mined, so check before sending it again.

With --wait the command keeps polling while the transaction is pending, up to
transactions.timeout.`,
	Example: `  etenda tx status 0x9fc76417374aa880d4449a1f7f31ec597f00b1f6f3dd2d66f4c9c6c445836d8b
  etenda tx status --wait 0x9fc76417374aa880d4449a1f7f31ec597f00b1f6f3dd2d66f4c9c6c445836d8b`,
	Args: cobra.ExactArgs(1),
	RunE: runTxStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	txStatusCmd.Flags().BoolVar(&txWait, "wait", false, "poll until the transaction leaves the pending state")

	txCmd.AddCommand(txStatusCmd)
	txCmd.GroupID = groupLedger
	rootCmd.AddCommand(txCmd)
}

func runTxStatus(cmd *cobra.Command, args []string) error {
	hash, err := parseTxHash(args[0])
	if err != nil {
		return err
	}
	limit := readTimeout
	if txWait {
		limit += cfg.Transactions.Timeout
	}
	ctx, cancel := interruptible(cmd, limit)
	defer cancel()

	cc, err := commandContext(ctx)
	if err != nil {
		return err
	}
	defer cc.Close()

	fetch := func(ctx context.Context) (*txlifecycle.Receipt, error) {
		return cc.Tender.TxStatus(ctx, hash)
	}
	var r *txlifecycle.Receipt
	if txWait {
		r, err = awaitSettled(ctx, fetch, cfg.Transactions.PollInterval)
	} else {
		r, err = fetch(ctx)
	}
	if err != nil {
		return err
	}
	return formatter.Receipt(r, cc.Network)
}

// awaitSettled polls fetch every interval until the receipt is no longer
// pending. Running out of time while pending is reported as a timeout.
func awaitSettled(ctx context.Context, fetch func(context.Context) (*txlifecycle.Receipt, error),
	interval time.Duration,
) (*txlifecycle.Receipt, error) {
	if interval <= 0 {
		interval = txlifecycle.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if r.State != txlifecycle.StatePending {
			return r, nil
		}
		select {
		case <-ctx.Done():
			return nil, etendaerr.WithDetails(etendaerr.WithCause(etendaerr.ErrTimedOut, ctx.Err()),
				map[string]string{"tx": r.Hash.Hex()})
		case <-ticker.C:
		}
	}
}
// parseTxHash accepts a 0x-prefixed 32-byte hex hash.
func parseTxHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, etendaerr.WithSuggestion(
			etendaerr.WithDetails(etendaerr.ErrInvalidInput, map[string]string{"hash": s}),
			"a transaction hash is 0x followed by 64 hex characters")
	}
	return common.BytesToHash(b), nil
}
