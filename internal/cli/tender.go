package cli

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/output"
	tenderservice "github.com/etenda/etenda/internal/service/tender"
)

const defaultListLimit = 10

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	tenderTitle       string
	tenderDescription string
	tenderBudget      string
	tenderDeadline    string
	tenderLimit       int
	tenderOwner       string
	awardBidIndex     string
)

// tenderCmd is the parent command for tender operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tenderCmd = &cobra.Command{
	Use:   "tender",
	Short: "Post, inspect and settle tenders",
	Long:  `Post tenders, browse them, and award or close the ones you own.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tenderPostCmd = &cobra.Command{
	Use:   "post",
	Short: "Post a new tender",
	Long: `Post a new tender on the ledger.

The budget is a decimal amount with at most 18 fractional digits. The deadline
accepts RFC3339, "2006-01-02 15:04", "2006-01-02" or unix seconds; times without
an offset use output.timezone from the configuration.`,
	Example: `  etenda tender post --title "Road repair" --description "Resurface 2km" --budget 1.5 --deadline 2026-12-01`,
	Args:    cobra.NoArgs,
	RunE:    runTenderPost,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tenderShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a tender and its bids",
	Long: `Show one tender with its status, budget, deadline and every bid placed on it.
Bid indexes shown here are the values 'etenda tender award --bid' expects.`,
	Example: `  etenda tender show 4`,
	Args:    cobra.ExactArgs(1),
	RunE:  runTenderShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tenderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest tenders",
	Long:  `List the newest tenders, or the tenders posted by --owner.`,
	Example: `  etenda tender list --limit 20
  etenda tender list --owner 0x52908400098527886E0F7030069857D2E4169EE7`,
	Args: cobra.NoArgs,
	RunE:  runTenderList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tenderMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List the tenders posted by your key",
	Long:  `List every tender posted by the account of the selected signing key.`,
	Example: `  etenda tender mine --key main`,
	Args:    cobra.NoArgs,
	RunE:  runTenderMine,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tenderCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Show how many tenders the ledger holds",
	Long:  `Show how many tenders the ledger holds. The count is always read from the chain.`,
	Example: `  etenda tender count --network base`,
	Args:    cobra.NoArgs,
	RunE:  runTenderCount,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tenderCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close an open tender without a winner",
	Long: `Close an open tender you own. No bid wins and no further bids are accepted.
Closing an awarded or closed tender is refused before anything is signed.`,
	Example: `  etenda tender close 4`,
	Args:    cobra.ExactArgs(1),
	RunE:  runTenderClose,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tenderAwardCmd = &cobra.Command{
	Use:     "award <id>",
	Short: "Award an open tender to one of its bids",
	Long: `Award an open tender you own to one of its bids. The bid is picked by its
index in 'etenda tender show'.`,
	Example: `  etenda tender award 4 --bid 0`,
	Args:    cobra.ExactArgs(1),
	RunE:    runTenderAward,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	tenderPostCmd.Flags().StringVar(&tenderTitle, "title", "", "tender title (required)")
	tenderPostCmd.Flags().StringVar(&tenderDescription, "description", "", "what the work involves (required)")
	tenderPostCmd.Flags().StringVar(&tenderBudget, "budget", "", "maximum amount a bid may ask for (required)")
	tenderPostCmd.Flags().StringVar(&tenderDeadline, "deadline", "", "last moment bids are accepted (required)")
	for _, name := range []string{"title", "description", "budget", "deadline"} {
		_ = tenderPostCmd.MarkFlagRequired(name)
	}

	tenderListCmd.Flags().IntVar(&tenderLimit, "limit", defaultListLimit, "number of tenders to show")
	tenderListCmd.Flags().StringVar(&tenderOwner, "owner", "", "only tenders posted by this address")

	tenderAwardCmd.Flags().StringVar(&awardBidIndex, "bid", "", "index of the winning bid, see 'etenda tender show' (required)")
	_ = tenderAwardCmd.MarkFlagRequired("bid")

	tenderCmd.AddCommand(tenderPostCmd, tenderShowCmd, tenderListCmd, tenderMineCmd, tenderCountCmd,
		tenderCloseCmd, tenderAwardCmd)
	tenderCmd.GroupID = groupLedger
	rootCmd.AddCommand(tenderCmd)
}

func runTenderPost(cmd *cobra.Command, _ []string) error {
	return runWrite(cmd, func(ctx context.Context, svc *tenderservice.Service) (*tenderservice.Result, error) {
		return svc.PostTender(ctx, &tenderservice.PostTenderRequest{
			Title:       tenderTitle,
			Description: tenderDescription,
			Budget:      tenderBudget,
			Deadline:    tenderDeadline,
		})
	})
}

func runTenderClose(cmd *cobra.Command, args []string) error {
	return runWrite(cmd, func(ctx context.Context, svc *tenderservice.Service) (*tenderservice.Result, error) {
		return svc.CloseTender(ctx, &tenderservice.CloseTenderRequest{TenderID: args[0]})
	})
}

func runTenderAward(cmd *cobra.Command, args []string) error {
	return runWrite(cmd, func(ctx context.Context, svc *tenderservice.Service) (*tenderservice.Result, error) {
		return svc.AwardTender(ctx, &tenderservice.AwardTenderRequest{TenderID: args[0], BidIndex: awardBidIndex})
	})
}

func runTenderShow(cmd *cobra.Command, args []string) error {
	return runRead(cmd, func(ctx context.Context, cc *CommandContext) error {
		td, bids, err := cc.Tender.TenderWithBids(ctx, args[0])
		if err != nil {
			return err
		}
		return formatter.Tender(td, bids, time.Now())
	})
}

func runTenderList(cmd *cobra.Command, _ []string) error {
	if tenderLimit <= 0 {
		tenderLimit = defaultListLimit
	}
	var owner common.Address
	if tenderOwner != "" {
		var err error
		if owner, err = chain.ParseAddress(tenderOwner); err != nil {
			return err
		}
	}
	return runRead(cmd, func(ctx context.Context, cc *CommandContext) error {
		if tenderOwner != "" {
			tenders, err := cc.Tender.UserTenders(ctx, owner)
			if err != nil {
				return err
			}
			return formatter.Tenders(tenders, time.Now())
		}
		tenders, err := cc.Tender.RecentTenders(ctx, tenderLimit)
		if err != nil {
			return err
		}
		return formatter.Tenders(tenders, time.Now())
	})
}

func runTenderMine(cmd *cobra.Command, _ []string) error {
	return runRead(cmd, func(ctx context.Context, cc *CommandContext) error {
		tenders, err := cc.Tender.MyTenders(ctx)
		if err != nil {
			return err
		}
		return formatter.Tenders(tenders, time.Now())
	})
}

func runTenderCount(cmd *cobra.Command, _ []string) error {
	return runRead(cmd, func(ctx context.Context, cc *CommandContext) error {
		n, err := cc.Tender.TenderCount(ctx)
		if err != nil {
			return err
		}
		if formatter.IsJSON() {
			return formatter.Print(map[string]string{"network": cc.Network.Name, "tenders": n.String()})
		}
		return formatter.Printf("%s tenders on %s\n", n, cc.Network.Display)
	})
}

// runRead builds the stack and runs fn under the read timeout.
func runRead(cmd *cobra.Command, fn func(ctx context.Context, cc *CommandContext) error) error {
	ctx, cancel := interruptible(cmd, readTimeout)
	defer cancel()

	cc, err := commandContext(ctx)
	if err != nil {
		return err
	}
	defer cc.Close()

	return fn(ctx, cc)
}

// runWrite executes one write and renders its outcome. A write that was
// broadcast is shown even when it failed, so the hash can be looked up later.
func runWrite(cmd *cobra.Command, fn func(ctx context.Context, svc *tenderservice.Service) (*tenderservice.Result, error)) error {
	// the lifecycle bounds the wait for inclusion; this only guards setup
	ctx, cancel := interruptible(cmd, cfg.Transactions.Timeout+readTimeout)
	defer cancel()

	cc, err := commandContext(ctx)
	if err != nil {
		return err
	}
	defer cc.Close()

	res, err := fn(ctx, cc.Tender)
	if res != nil && res.Outcome != nil && (err == nil || res.Outcome.Broadcast()) {
		if ferr := formatter.Tx(output.NewTxView(res.Outcome, res.TenderID, cc.Network)); ferr != nil && err == nil {
			return ferr
		}
	}
	return err
}
