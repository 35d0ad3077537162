package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/chain"
	tenderservice "github.com/etenda/etenda/internal/service/tender"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var (
	bidAmount   string
	bidProposal string
	bidBidder   string
)

// bidCmd is the parent command for bid operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var bidCmd = &cobra.Command{
	Use:   "bid",
	Short: "Submit and browse bids",
	Long:  `Submit bids on open tenders and list the bids on a tender or by an account.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var bidSubmitCmd = &cobra.Command{
	Use:   "submit <tender-id>",
	Short: "Bid on an open tender",
	Long: `Bid on an open tender. The amount must be positive and no larger than the
tender's budget, the deadline must not have passed, and owners cannot bid on
their own tenders.`,
	Example: `  etenda bid submit 4 --amount 1.2 --proposal "Done in 3 weeks"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runBidSubmit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var bidListCmd = &cobra.Command{
	Use:   "list [tender-id]",
	Short: "List the bids on a tender, or by --bidder",
	Long:  `List the bids placed on one tender, or every bid placed by --bidder.`,
	Example: `  etenda bid list 4
  etenda bid list --bidder 0x52908400098527886E0F7030069857D2E4169EE7`,
	Args: cobra.MaximumNArgs(1),
	RunE:  runBidList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var bidMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List the bids placed by your key",
	Long:  `List every bid placed by the account of the selected signing key.`,
	Example: `  etenda bid mine`,
	Args:    cobra.NoArgs,
	RunE:  runBidMine,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	bidSubmitCmd.Flags().StringVar(&bidAmount, "amount", "", "amount asked, at most the tender budget (required)")
	bidSubmitCmd.Flags().StringVar(&bidProposal, "proposal", "", "what you offer")
	_ = bidSubmitCmd.MarkFlagRequired("amount")

	bidListCmd.Flags().StringVar(&bidBidder, "bidder", "", "list the bids placed by this address")

	bidCmd.AddCommand(bidSubmitCmd, bidListCmd, bidMineCmd)
	bidCmd.GroupID = groupLedger
	rootCmd.AddCommand(bidCmd)
}

func runBidSubmit(cmd *cobra.Command, args []string) error {
	return runWrite(cmd, func(ctx context.Context, svc *tenderservice.Service) (*tenderservice.Result, error) {
		return svc.SubmitBid(ctx, &tenderservice.SubmitBidRequest{
			TenderID: args[0],
			Amount:   bidAmount,
			Proposal: bidProposal,
		})
	})
}

func runBidList(cmd *cobra.Command, args []string) error {
	switch {
	case len(args) == 1 && bidBidder != "":
		return errBidListArgs()
	case len(args) == 1:
		return runRead(cmd, func(ctx context.Context, cc *CommandContext) error {
			bids, err := cc.Tender.TenderBids(ctx, args[0])
			if err != nil {
				return err
			}
			return formatter.Bids(bids)
		})
	case bidBidder != "":
		bidder, err := chain.ParseAddress(bidBidder)
		if err != nil {
			return err
		}
		return runRead(cmd, func(ctx context.Context, cc *CommandContext) error {
			bids, err := cc.Tender.UserBids(ctx, bidder)
			if err != nil {
				return err
			}
			return formatter.Bids(bids)
		})
	default:
		return errBidListArgs()
	}
}

func runBidMine(cmd *cobra.Command, _ []string) error {
	return runRead(cmd, func(ctx context.Context, cc *CommandContext) error {
		bids, err := cc.Tender.MyBids(ctx)
		if err != nil {
			return err
		}
		return formatter.Bids(bids)
	})
}

func errBidListArgs() error {
	return etendaerr.WithSuggestion(etendaerr.ErrInvalidInput,
		"pass a tender id, or --bidder <address>, but not both")
}
