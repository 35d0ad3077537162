package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/ledger"
	"github.com/etenda/etenda/internal/repository"
)

const shutdownTimeout = 5 * time.Second

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	watchInterval    time.Duration
	watchFromBlock   uint64
	watchMetricsAddr string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow ledger events as they are mined",
	Long: `Follow TenderCreated, BidSubmitted, TenderAwarded and TenderClosed events.

Each event marks the cached views it affects as stale, so a shared redis cache
stays current for every etenda process using it. With --metrics-addr the
Prometheus metrics are served on /metrics while watching.`,
	Example: `  etenda watch --metrics-addr :9464`,
	Args:    cobra.NoArgs,
	RunE:    runWatch,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", repository.DefaultWatchInterval, "poll interval")
	watchCmd.Flags().Uint64Var(&watchFromBlock, "from", 0, "replay events from this block (default: start at the head)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	watchCmd.GroupID = groupLedger
	rootCmd.AddCommand(watchCmd)
}

type eventView struct {
	Event    string `json:"event"`
	TenderID string `json:"tender_id"`
	Account  string `json:"account"`
	Amount   string `json:"amount,omitempty"`
	Title    string `json:"title,omitempty"`
	Block    uint64 `json:"block"`
	TxHash   string `json:"tx_hash"`
}

func newEventView(ev ledger.Event) eventView {
	v := eventView{
		Event:    string(ev.Kind),
		TenderID: ev.TenderID.String(),
		Account:  ev.Account.Hex(),
		Title:    ev.Title,
		Block:    ev.BlockNumber,
		TxHash:   ev.TxHash.Hex(),
	}
	if ev.Amount != nil {
		v.Amount = chain.FormatAmount(ev.Amount)
	}
	return v
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := interruptible(cmd, 0)
	defer stop()

	cc, err := commandContext(ctx)
	if err != nil {
		return err
	}
	defer cc.Close()

	contractAddr, err := cc.Tender.Contract()
	if err != nil {
		return err
	}

	opts := []repository.WatcherOption{
		repository.WatchInterval(watchInterval),
		repository.WatchLogger(cc.Logger),
		repository.WatchRecorder(cc.Metrics),
		repository.OnEvent(printEvent),
	}
	if cmd.Flags().Changed("from") {
		opts = append(opts, repository.WatchFrom(watchFromBlock))
	}
	watcher := repository.NewWatcher(cc.Backend, contractAddr, cc.Tender.Repository(), opts...)

	if !formatter.IsJSON() {
		out(cmd.ErrOrStderr(), "Watching %s on %s (Ctrl+C to stop)\n", contractAddr.Hex(), cc.Network.Display)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	if watchMetricsAddr != "" {
		srv := &http.Server{
			Addr:              watchMetricsAddr,
			Handler:           metricsMux(cc),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			cc.Logger.Info().Str("addr", watchMetricsAddr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func metricsMux(cc *CommandContext) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", cc.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func printEvent(ev ledger.Event) {
	v := newEventView(ev)
	if formatter.IsJSON() {
		_ = formatter.Print(v)
		return
	}
	switch ev.Kind {
	case ledger.EventTenderCreated:
		_ = formatter.Printf("#%d %s tender %s %q budget %s by %s\n", v.Block, v.Event, v.TenderID, v.Title, v.Amount, v.Account)
	case ledger.EventBidSubmitted:
		_ = formatter.Printf("#%d %s tender %s amount %s by %s\n", v.Block, v.Event, v.TenderID, v.Amount, v.Account)
	case ledger.EventTenderAwarded:
		_ = formatter.Printf("#%d %s tender %s to %s\n", v.Block, v.Event, v.TenderID, v.Account)
	default:
		_ = formatter.Printf("#%d %s tender %s\n", v.Block, v.Event, v.TenderID)
	}
}
