// Package cli implements the etenda command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/config"
	"github.com/etenda/etenda/internal/output"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	networkName  string
	rpcURL       string
	keyName      string
	assumeYes    bool
	txTimeout    time.Duration

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    = zerolog.Nop()
	logCloser io.Closer
	formatter *output.Formatter
)

// Command groups shown in root help.
const (
	groupLedger = "ledger"
	groupKeys   = "keys"
	groupConfig = "config"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "etenda",
	Short: "Post tenders and bid on them from the terminal",
	Long: `etenda talks to the tender ledger contract on Base and other EVM networks.

Owners post tenders with a budget and a deadline, bidders submit bids no larger
than the budget, and the owner awards one bid or closes the tender. Every write
is validated locally before anything is signed.`,
	Example: `  etenda key new main
  etenda tender post --title "Road repair" --description "Resurface 2km" --budget 1.5 --deadline 2026-12-01
  etenda bid submit 4 --amount 1.2 --proposal "Done in 3 weeks"
  etenda tender award 4 --bid 0`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	walkCommands(rootCmd, enrichParentLong)

	err := rootCmd.Execute()
	if err != nil {
		// Format and print error
		if formatter != nil {
			_ = output.WriteError(rootCmd.ErrOrStderr(), err, formatter.Format())
		} else {
			_ = output.WriteError(rootCmd.ErrOrStderr(), err, output.FormatText)
		}
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return etendaerr.ExitCode(err)
}

// initGlobals loads configuration and builds the logger and formatter.
// Precedence, lowest first: defaults, config file, .env, environment, flags.
func initGlobals(cmd *cobra.Command) error {
	home := resolveHome()

	if err := config.LoadDotEnv(config.DotEnvPaths(home)...); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		if !etendaerr.Is(err, etendaerr.ErrConfigNotFound) {
			return err
		}
		cfg = config.Defaults()
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)
	applyFlags(cfg)

	if err = cfg.Validate(); err != nil {
		return err
	}

	logger, logCloser, err = config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return etendaerr.WithDetails(etendaerr.ErrConfigInvalid, map[string]string{"key": "output.timezone"})
	}
	formatter = output.NewFormatter(output.Resolve(cfg.Output.DefaultFormat, cmd.OutOrStdout()), cmd.OutOrStdout(),
		output.WithLocation(loc))

	logger.Debug().Str("home", cfg.Home).Str("network", cfg.Network.Name).Msg("configuration loaded")
	return nil
}

// resolveHome picks the data directory: --home, then ETENDA_HOME, then ~/.etenda.
func resolveHome() string {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}
	return config.ExpandHome(home)
}

// applyFlags overrides configuration with command-line flags.
func applyFlags(c *config.Config) {
	if homeDir != "" {
		c.Home = config.ExpandHome(homeDir)
	}
	if networkName != "" && networkName != c.Network.Name {
		c.Network.Name = networkName
		// an endpoint configured for another network does not apply
		if rpcURL == "" && os.Getenv(config.EnvRPC) == "" {
			c.Network.RPC = ""
		}
		if os.Getenv(config.EnvContract) == "" {
			c.Network.Contract = ""
		}
	}
	if rpcURL != "" {
		c.Network.RPC = config.SanitizeURL(rpcURL)
	}
	if keyName != "" {
		c.Signer.Key = keyName
	}
	if txTimeout > 0 {
		c.Transactions.Timeout = txTimeout
	}
	if verbose {
		c.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		c.Output.DefaultFormat = outputFormat
	}
}

// cleanup releases resources.
func cleanup() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

// out writes formatted output, ignoring write errors.
func out(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// outln writes a line, ignoring write errors.
func outln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupLedger, Title: "Ledger Operations:"},
		&cobra.Group{ID: groupKeys, Title: "Keys & Signing:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&homeDir, "home", "", "etenda data directory (default: ~/.etenda)")
	pf.StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&networkName, "network", "n", "", "network name (see 'etenda network list')")
	pf.StringVar(&rpcURL, "rpc", "", "node RPC endpoint")
	pf.StringVarP(&keyName, "key", "k", "", "signing key name")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "sign without asking for confirmation")
	pf.DurationVar(&txTimeout, "timeout", 0, "how long to wait for a transaction to be mined")

}
