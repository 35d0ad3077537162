package cli

import (
	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/chain"
)

// networkCmd is the parent command for network information.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show the networks the ledger is deployed on",
	Long: `Show the networks etenda knows. Select one with --network, ETENDA_NETWORK or
network.name in the configuration.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known networks and ledger addresses",
	Long: `List the known networks, their chain ids and the ledger address used on each.
The selected network is marked with *. Addresses configured under
network.contracts are included.`,
	Example: `  etenda network list`,
	Args:    cobra.NoArgs,
	RunE: runNetworkList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	networkCmd.AddCommand(networkListCmd)
	networkCmd.GroupID = groupConfig
	rootCmd.AddCommand(networkCmd)
}

func runNetworkList(_ *cobra.Command, _ []string) error {
	book, err := cfg.AddressBook()
	if err != nil {
		return err
	}
	return formatter.Networks(chain.Networks(), book, cfg.Network.Name)
}
