package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome          = "ETENDA_HOME"
	EnvNetwork       = "ETENDA_NETWORK"
	EnvRPC           = "ETENDA_RPC"
	EnvContract      = "ETENDA_CONTRACT"
	EnvKey           = "ETENDA_KEY"
	EnvKeyPassword   = "ETENDA_KEY_PASSWORD" // #nosec G101 -- variable name, not a credential
	EnvKeychain      = "ETENDA_KEYCHAIN"
	EnvGasSpeed      = "ETENDA_GAS_SPEED"
	EnvTimeout       = "ETENDA_TIMEOUT"
	EnvCache         = "ETENDA_CACHE"
	EnvRedisAddr     = "ETENDA_REDIS_ADDR"
	EnvRedisPassword = "ETENDA_REDIS_PASSWORD" // #nosec G101 -- variable name, not a credential
	EnvOutputFormat  = "ETENDA_OUTPUT_FORMAT"
	EnvLogLevel      = "ETENDA_LOG_LEVEL"
	EnvNoColor       = "NO_COLOR"
)

// LoadDotEnv loads .env files into the process environment. Variables that
// are already set win, and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// DotEnvPaths lists the .env files consulted at startup: the working
// directory first, then the etenda home.
func DotEnvPaths(home string) []string {
	return []string{".env", filepath.Join(ExpandHome(home), ".env")}
}

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Network.Name = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvContract); v != "" {
		cfg.Network.Contract = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvKey); v != "" {
		cfg.Signer.Key = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvKeychain); v != "" {
		if on, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Signer.Keychain = on
		}
	}

	if v := os.Getenv(EnvGasSpeed); v != "" {
		cfg.Transactions.GasSpeed = strings.ToLower(v)
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		if d, ok := parseDuration(v); ok {
			cfg.Transactions.Timeout = d
		}
	}

	if v := os.Getenv(EnvCache); v != "" {
		cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Cache.Redis.Addr = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvRedisPassword); v != "" {
		cfg.Cache.Redis.Password = v
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseDuration accepts Go durations ("90s") or bare seconds ("90").
func parseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided RPC URLs that may contain copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
