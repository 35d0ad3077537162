package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/etenda/etenda/internal/config"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
var configForce bool

// configCmd is the parent command for configuration management.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change etenda configuration.

The file lives at ~/.etenda/config.yaml. ETENDA_* environment variables, .env
files and command-line flags override it for a single run.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Write the default configuration to ~/.etenda/config.yaml, or under --home.`,
	Example: `  etenda config init
  etenda config init --force`,
	Args: cobra.NoArgs,
	RunE:  runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration in effect for this run, after environment variables and
flags are applied. Secrets are masked.`,
	Example: `  etenda config show -o json`,
	Args:    cobra.NoArgs,
	RunE:  runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:       "get <key>",
	Short:     "Print one configuration value",
	Long:      `Print the effective value of one dotted configuration key.`,
	Example:   `  etenda config get network.name`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: configKeyNames(),
	RunE:      runConfigGet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one configuration value",
	Long: `Change one value in the configuration file. The result is validated before it
is written; environment and flag overrides are never persisted. Put '--' before
a value that starts with a dash.`,
	Example: `  etenda config set transactions.gas_speed fast
  etenda config set -- network.rate_limit 0`,
	Args:    cobra.ExactArgs(2),
	RunE:    runConfigSet,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)
	configCmd.GroupID = groupConfig
	rootCmd.AddCommand(configCmd)
}

// configKey reads and writes one dotted configuration path.
type configKey struct {
	get    func(c *config.Config) string
	set    func(c *config.Config, v string) error
	secret bool
}

func stringKey(field func(c *config.Config) *string) configKey {
	return configKey{
		get: func(c *config.Config) string { return *field(c) },
		set: func(c *config.Config, v string) error { *field(c) = v; return nil },
	}
}

func durationKey(field func(c *config.Config) *time.Duration) configKey {
	return configKey{
		get: func(c *config.Config) string { return field(c).String() },
		set: func(c *config.Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return invalidValue(v, "a positive duration such as 90s or 2m")
			}
			*field(c) = d
			return nil
		},
	}
}

func uintKey(field func(c *config.Config) *uint64) configKey {
	return configKey{
		get: func(c *config.Config) string { return strconv.FormatUint(*field(c), 10) },
		set: func(c *config.Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return invalidValue(v, "a non-negative integer")
			}
			*field(c) = n
			return nil
		},
	}
}

func boolKey(field func(c *config.Config) *bool) configKey {
	return configKey{
		get: func(c *config.Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *config.Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return invalidValue(v, "true or false")
			}
			*field(c) = b
			return nil
		},
	}
}

//nolint:gochecknoglobals // static key table
var configKeys = map[string]configKey{
	"network.name":     stringKey(func(c *config.Config) *string { return &c.Network.Name }),
	"network.rpc":      stringKey(func(c *config.Config) *string { return &c.Network.RPC }),
	"network.contract": stringKey(func(c *config.Config) *string { return &c.Network.Contract }),
	"network.rate_limit": {
		get: func(c *config.Config) string { return strconv.FormatFloat(c.Network.RateLimit, 'f', -1, 64) },
		set: func(c *config.Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return invalidValue(v, "requests per second, 0 to disable")
			}
			c.Network.RateLimit = f
			return nil
		},
	},
	"signer.key":                 stringKey(func(c *config.Config) *string { return &c.Signer.Key }),
	"signer.confirm":             boolKey(func(c *config.Config) *bool { return &c.Signer.Confirm }),
	"signer.keychain":            boolKey(func(c *config.Config) *bool { return &c.Signer.Keychain }),
	"transactions.gas_speed":     stringKey(func(c *config.Config) *string { return &c.Transactions.GasSpeed }),
	"transactions.gas_limit":     uintKey(func(c *config.Config) *uint64 { return &c.Transactions.GasLimit }),
	"transactions.timeout":       durationKey(func(c *config.Config) *time.Duration { return &c.Transactions.Timeout }),
	"transactions.poll_interval": durationKey(func(c *config.Config) *time.Duration { return &c.Transactions.PollInterval }),
	"transactions.confirmations": uintKey(func(c *config.Config) *uint64 { return &c.Transactions.Confirmations }),
	"cache.backend":              stringKey(func(c *config.Config) *string { return &c.Cache.Backend }),
	"cache.ttl":                  durationKey(func(c *config.Config) *time.Duration { return &c.Cache.TTL }),
	"cache.file":                 stringKey(func(c *config.Config) *string { return &c.Cache.File }),
	"cache.redis.addr":           stringKey(func(c *config.Config) *string { return &c.Cache.Redis.Addr }),
	"cache.redis.password": {
		get:    func(c *config.Config) string { return c.Cache.Redis.Password },
		set:    func(c *config.Config, v string) error { c.Cache.Redis.Password = v; return nil },
		secret: true,
	},
	"output.default_format": stringKey(func(c *config.Config) *string { return &c.Output.DefaultFormat }),
	"output.color":          stringKey(func(c *config.Config) *string { return &c.Output.Color }),
	"output.timezone":       stringKey(func(c *config.Config) *string { return &c.Output.Timezone }),
	"logging.level":         stringKey(func(c *config.Config) *string { return &c.Logging.Level }),
	"logging.file":          stringKey(func(c *config.Config) *string { return &c.Logging.File }),
	"logging.pretty":        boolKey(func(c *config.Config) *bool { return &c.Logging.Pretty }),
}

func configKeyNames() []string {
	names := make([]string, 0, len(configKeys))
	for k := range configKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func lookupConfigKey(path string) (configKey, error) {
	k, ok := configKeys[strings.ToLower(strings.TrimSpace(path))]
	if !ok {
		return configKey{}, etendaerr.WithSuggestion(
			etendaerr.WithDetails(etendaerr.ErrUnknownConfigKey, map[string]string{"key": path}),
			"run 'etenda config show' to see the available keys")
	}
	return k, nil
}

func invalidValue(value, expected string) error {
	return etendaerr.WithSuggestion(
		etendaerr.WithDetails(etendaerr.ErrConfigInvalid, map[string]string{"value": value}),
		"expected "+expected)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return etendaerr.WithSuggestion(
			etendaerr.WithDetails(etendaerr.ErrInvalidInput, map[string]string{"path": configPath}),
			"configuration already exists; use --force to overwrite")
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - network.name: Network to use (see 'etenda network list')")
	outln(w, "  - network.rpc: Your own RPC endpoint (optional)")
	outln(w, "  - signer.key: Default signing key (see 'etenda key list')")
	outln(w, "  - cache.backend: file, redis, or none")
	outln(w, "  - logging.level: Log level (off/error/warn/info/debug)")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	values := make(map[string]string, len(configKeys))
	for _, name := range configKeyNames() {
		values[name] = displayValue(configKeys[name])
	}
	values["home"] = cfg.Home

	if formatter.IsJSON() {
		return formatter.Print(values)
	}
	return displayConfigText(cmd.OutOrStdout(), values)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	k, err := lookupConfigKey(args[0])
	if err != nil {
		return err
	}
	outln(cmd.OutOrStdout(), k.get(cfg))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := strings.ToLower(strings.TrimSpace(args[0])), args[1]
	k, err := lookupConfigKey(path)
	if err != nil {
		return err
	}

	// Start from the file, not the effective config, so env and flags are not persisted
	configPath := config.Path(cfg.Home)
	fileCfg, err := config.Load(configPath)
	if err != nil {
		if !etendaerr.Is(err, etendaerr.ErrConfigNotFound) {
			return err
		}
		fileCfg = config.Defaults()
		fileCfg.Home = cfg.Home
	}

	if err = k.set(fileCfg, value); err != nil {
		return err
	}
	if err = fileCfg.Validate(); err != nil {
		return err
	}
	if err = config.Save(fileCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if k.secret {
		value = maskSecret(value)
	}
	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

func displayValue(k configKey) string {
	v := k.get(cfg)
	if k.secret {
		return maskSecret(v)
	}
	if v == "" {
		return "(not configured)"
	}
	return v
}

func maskSecret(v string) string {
	switch {
	case v == "":
		return "(not configured)"
	case len(v) >= 4:
		return v[:4] + "..."
	default:
		return "***..."
	}
}

// displayConfigText groups values by section.
func displayConfigText(w io.Writer, values map[string]string) error {
	outln(w, "Configuration:")
	outln(w)
	out(w, "  home: %s\n", values["home"])

	section := ""
	for _, name := range configKeyNames() {
		head, rest, _ := strings.Cut(name, ".")
		if head != section {
			section = head
			outln(w)
			out(w, "  %s:\n", section)
		}
		out(w, "    %s: %s\n", rest, values[name])
	}
	return nil
}
