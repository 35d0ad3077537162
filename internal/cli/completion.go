package cli

import (
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/chain/eth"
	"github.com/etenda/etenda/internal/config"
	"github.com/etenda/etenda/internal/wallet"
)

//nolint:gochecknoglobals // shell name to script generator
var completionShells = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        (*cobra.Command).GenZshCompletion,
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": (*cobra.Command).GenPowerShellCompletionWithDesc,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Generate a shell completion script",
	Long: `Generate a shell completion script for etenda. Besides commands and flags it
completes stored key names, network names, configuration keys and the accepted
values of enumerated settings in 'etenda config set'.`,
	Example: `  source <(etenda completion bash)
  etenda completion zsh > "${fpath[1]}/_etenda"
  etenda completion fish > ~/.config/fish/completions/etenda.fish
  etenda completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             sortedKeys(completionShells),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	// completion must work before a configuration exists
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionShells[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func withPrefix(candidates []string, prefix string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// completeKeyNames offers stored key names. Completion runs without
// PersistentPreRunE, so the home directory comes from flags and environment.
func completeKeyNames(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names, err := wallet.NewKeyStore(filepath.Join(resolveHome(), "keys")).List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return withPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func networkNames() []string {
	networks := chain.Networks()
	names := make([]string, 0, len(networks))
	for _, n := range networks {
		names = append(names, n.Name)
	}
	return names
}

func completeNetworks(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return networkNames(), cobra.ShellCompDirectiveNoFileComp
}

// configValueChoices lists the accepted values of an enumerated key, or nil.
func configValueChoices(key string) []string {
	switch key {
	case "network.name":
		return networkNames()
	case "transactions.gas_speed":
		return []string{string(eth.GasSpeedSlow), string(eth.GasSpeedMedium), string(eth.GasSpeedFast)}
	case "cache.backend":
		return []string{config.CacheFile, config.CacheRedis, config.CacheNone}
	case "output.default_format":
		return []string{"auto", "text", "json"}
	case "logging.level":
		return []string{"off", "error", "warn", "info", "debug"}
	case "signer.confirm", "signer.keychain", "logging.pretty":
		return []string{"true", "false"}
	}
	return nil
}

// completeConfigSet completes the key, then the value when the key is enumerated.
func completeConfigSet(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return withPrefix(configKeyNames(), toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return withPrefix(configValueChoices(args[0]), toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	completionCmd.GroupID = groupConfig
	rootCmd.AddCommand(completionCmd)

	configSetCmd.ValidArgsFunction = completeConfigSet
	_ = rootCmd.RegisterFlagCompletionFunc("key", completeKeyNames)
	_ = rootCmd.RegisterFlagCompletionFunc("network", completeNetworks)
	_ = rootCmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(
		configValueChoices("output.default_format"), cobra.ShellCompDirectiveNoFileComp))
}
