// Package config provides configuration management for etenda.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/chain/eth"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version      int                `yaml:"version"`
	Home         string             `yaml:"home"`
	Network      NetworkConfig      `yaml:"network"`
	Signer       SignerConfig       `yaml:"signer"`
	Transactions TransactionsConfig `yaml:"transactions"`
	Cache        CacheConfig        `yaml:"cache"`
	Output       OutputConfig       `yaml:"output"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// NetworkConfig selects the ledger network and node endpoint.
type NetworkConfig struct {
	Name string `yaml:"name"`
	// RPC overrides the network's public endpoint.
	RPC string `yaml:"rpc,omitempty"`
	// Contract overrides the ledger address on the selected network.
	Contract string `yaml:"contract,omitempty"`
	// Contracts adds ledger deployments by chain id.
	Contracts map[uint64]string `yaml:"contracts,omitempty"`
	RateLimit float64           `yaml:"rate_limit"`
	Burst     int               `yaml:"burst"`
}

// SignerConfig names the key used to sign writes.
type SignerConfig struct {
	Key     string `yaml:"key,omitempty"`
	Confirm bool   `yaml:"confirm"`

	// Keychain keeps key passwords in the OS keychain after the first unlock.
	Keychain bool `yaml:"keychain"`
}

// TransactionsConfig tunes how writes are built and awaited.
type TransactionsConfig struct {
	GasSpeed      string        `yaml:"gas_speed"`
	GasLimit      uint64        `yaml:"gas_limit"`
	Timeout       time.Duration `yaml:"timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	Confirmations uint64        `yaml:"confirmations"`
}

// CacheConfig selects the shared view store.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	File    string        `yaml:"file"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	// Timezone applies to deadlines entered without an offset and to
	// deadlines shown in text output.
	Timezone string `yaml:"timezone"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads configuration from the specified file. Missing keys keep
// their defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, etendaerr.WithDetails(etendaerr.WithCause(etendaerr.ErrConfigNotFound, err),
				map[string]string{"path": path})
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, etendaerr.WithDetails(etendaerr.WithCause(etendaerr.ErrConfigInvalid, err),
			map[string]string{"path": path})
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Validate checks enumerated settings and the selected network.
func (c *Config) Validate() error {
	invalid := func(key, value, allowed string) error {
		return etendaerr.WithSuggestion(
			etendaerr.WithDetails(etendaerr.ErrConfigInvalid, map[string]string{"key": key, "value": value}),
			fmt.Sprintf("%s must be one of: %s", key, allowed))
	}

	if _, err := chain.NetworkByName(c.Network.Name); err != nil {
		return err
	}
	if _, err := eth.ParseGasSpeed(c.Transactions.GasSpeed); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return invalid("cache.backend", c.Cache.Backend, "file, redis, none")
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Redis.Addr == "" {
		return invalid("cache.redis.addr", "", "a host:port address when cache.backend is redis")
	}
	switch c.Output.DefaultFormat {
	case "auto", "text", "json":
	default:
		return invalid("output.default_format", c.Output.DefaultFormat, "auto, text, json")
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return invalid("output.timezone", c.Output.Timezone, "Local, UTC, or an IANA zone name")
	}
	return nil
}

// SelectedNetwork returns the configured network.
func (c *Config) SelectedNetwork() (chain.Network, error) {
	return chain.NetworkByName(c.Network.Name)
}

// RPCURL returns the node endpoint: the override, else the network default.
func (c *Config) RPCURL() (string, error) {
	if c.Network.RPC != "" {
		return c.Network.RPC, nil
	}
	n, err := c.SelectedNetwork()
	if err != nil {
		return "", err
	}
	return n.DefaultRPC, nil
}

// AddressBook returns the built-in deployments plus configured ones.
func (c *Config) AddressBook() (chain.AddressBook, error) {
	book, err := chain.DefaultAddressBook().With(c.Network.Contracts)
	if err != nil {
		return nil, err
	}
	if c.Network.Contract == "" {
		return book, nil
	}
	n, err := c.SelectedNetwork()
	if err != nil {
		return nil, err
	}
	addr, err := chain.ParseAddress(c.Network.Contract)
	if err != nil {
		return nil, err
	}
	book[n.ChainID] = addr
	return book, nil
}

// Contract returns the ledger address on the selected network, if known.
func (c *Config) Contract() (common.Address, bool) {
	book, err := c.AddressBook()
	if err != nil {
		return common.Address{}, false
	}
	n, err := c.SelectedNetwork()
	if err != nil {
		return common.Address{}, false
	}
	return book.Resolve(n.ChainID)
}

// Location returns the zone for deadlines entered without an offset.
func (c *Config) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Output.Timezone) {
	case "", "Local", "local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Output.Timezone)
	}
}

// GetHome returns the etenda home directory with ~ expanded.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// KeysDir is where signing keys are stored.
func (c *Config) KeysDir() string {
	return filepath.Join(c.GetHome(), "keys")
}

// CacheFile returns the file store path with ~ expanded.
func (c *Config) CacheFile() string {
	return ExpandHome(c.Cache.File)
}

// DefaultHome returns the default etenda home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".etenda"
	}
	return filepath.Join(home, ".etenda")
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
