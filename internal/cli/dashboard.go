package cli

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/chain"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var dashboardCmd = &cobra.Command{
	Use:   "dashboard [address]",
	Short: "Summarize tenders and bids for an account",
	Long: `Summarize the tenders an account posted and the bids it placed: open tenders,
total budget, active bids and bids won. Without an address the signing key's
account is used.`,
	Example: `  etenda dashboard
  etenda dashboard 0x52908400098527886E0F7030069857D2E4169EE7`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDashboard,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	dashboardCmd.GroupID = groupLedger
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	var account common.Address
	if len(args) == 1 {
		var err error
		if account, err = chain.ParseAddress(args[0]); err != nil {
			return err
		}
	}
	return runRead(cmd, func(ctx context.Context, cc *CommandContext) error {
		if len(args) == 0 {
			var err error
			if account, err = cc.Tender.Account(); err != nil {
				return err
			}
		}
		stats, err := cc.Tender.Dashboard(ctx, account)
		if err != nil {
			return err
		}
		return formatter.Stats(account, stats)
	})
}
