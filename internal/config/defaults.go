package config

import (
	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/chain/eth"
	"github.com/etenda/etenda/internal/repository"
	"github.com/etenda/etenda/internal/txlifecycle"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// DefaultNetwork is the network used when none is configured.
const DefaultNetwork = "base-sepolia"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.etenda",
		Network: NetworkConfig{
			Name:      DefaultNetwork,
			RateLimit: chain.DefaultRatePerSecond,
			Burst:     chain.DefaultBurst,
		},
		Signer: SignerConfig{
			Confirm: true,
		},
		Transactions: TransactionsConfig{
			GasSpeed:      string(eth.GasSpeedMedium),
			Timeout:       txlifecycle.DefaultTimeout,
			PollInterval:  txlifecycle.DefaultPollInterval,
			Confirmations: txlifecycle.DefaultConfirmations,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     repository.DefaultTTL,
			File:    "~/.etenda/cache.json",
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Timezone:      "Local",
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.etenda/etenda.log",
		},
	}
}
