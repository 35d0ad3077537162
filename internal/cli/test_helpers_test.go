package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/chain/chaintest"
	"github.com/etenda/etenda/internal/chain/eth"
	"github.com/etenda/etenda/internal/config"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/ledger/ledgertest"
	"github.com/etenda/etenda/internal/wallet"
)

const (
	testPassword = "correct horse battery"
	testContract = "0x00000000000000000000000000000000000e7e4d"

	// well-known development keys, never funded anywhere real
	ownerKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	bidderKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, password []byte, secret string) {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	origSecret := promptSecretFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		promptSecretFn = origSecret
	})
	promptPasswordFn = func(_ string) ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptNewPasswordFn = func() ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptSecretFn = func(_ string) (string, error) {
		return secret, nil
	}
}

// cliEnv runs the real command tree against an in-memory ledger.
type cliEnv struct {
	t       *testing.T
	home    string
	backend *chaintest.Backend
	ledger  *ledgertest.Ledger
	stderr  bytes.Buffer
}

// newCLIEnv isolates the CLI in a temp home on base-sepolia. Not parallel:
// commands share package state.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	e := &cliEnv{
		t:       t,
		home:    t.TempDir(),
		backend: chaintest.NewBackend(chain.BaseSepolia),
		ledger:  ledgertest.New(common.HexToAddress(testContract)),
	}
	e.ledger.Attach(e.backend)

	cfgYAML := fmt.Sprintf(`network:
  name: base-sepolia
  contract: %q
signer:
  confirm: false
transactions:
  poll_interval: 10ms
  timeout: 5s
cache:
  backend: none
output:
  timezone: UTC
logging:
  level: "off"
  file: ""
`, testContract)
	require.NoError(t, os.WriteFile(config.Path(e.home), []byte(cfgYAML), 0o600))

	for _, k := range []string{
		config.EnvHome, config.EnvNetwork, config.EnvRPC, config.EnvContract, config.EnvKey,
		config.EnvGasSpeed, config.EnvTimeout, config.EnvCache, config.EnvRedisAddr, config.EnvRedisPassword,
		config.EnvOutputFormat, config.EnvLogLevel, config.EnvKeychain,
	} {
		t.Setenv(k, "")
	}
	t.Setenv(config.EnvKeyPassword, testPassword)
	keyring.MockInit()

	origBackend := newBackendFn
	newBackendFn = func(*config.Config, zerolog.Logger, eth.Recorder) (gateway.Backend, func(), error) {
		return e.backend, func() {}, nil
	}
	t.Cleanup(func() {
		newBackendFn = origBackend
		resetCommandFlags(rootCmd)
	})
	return e
}

// run executes args and returns stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	resetCommandFlags(rootCmd)
	e.stderr.Reset()

	ctx := context.Background()
	resetCommandState(ctx, rootCmd)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&e.stderr)
	rootCmd.SetArgs(append([]string{"--home", e.home}, args...))
	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), err
}

// runJSON executes args with JSON output and decodes stdout into v.
func (e *cliEnv) runJSON(v any, args ...string) {
	e.t.Helper()
	stdout, err := e.run(append([]string{"-o", "json"}, args...)...)
	require.NoError(e.t, err, "stderr: %s", e.stderr.String())
	require.NoError(e.t, json.Unmarshal([]byte(stdout), v), "stdout: %s", stdout)
}

// importKey stores hexKey as name and returns its address.
func (e *cliEnv) importKey(name, hexKey string) common.Address {
	e.t.Helper()
	withMockPrompts(e.t, []byte(testPassword), hexKey)
	_, err := e.run("key", "import", name)
	require.NoError(e.t, err, "stderr: %s", e.stderr.String())

	key, err := wallet.ParsePrivateKey(hexKey)
	require.NoError(e.t, err)
	return crypto.PubkeyToAddress(key.PublicKey)
}

func (e *cliEnv) keysDir() string {
	return filepath.Join(e.home, "keys")
}

// resetCommandState drops writers and contexts earlier runs left on the
// tree. Cobra keeps a subcommand's first context and prefers its own writers
// over the root's.
func resetCommandState(ctx context.Context, root *cobra.Command) {
	walkCommands(root, func(c *cobra.Command) {
		c.SetOut(nil)
		c.SetErr(nil)
		c.SetIn(nil)
		c.SetContext(ctx)
	})
}

// resetCommandFlags puts every flag back to its default so runs do not leak
// into each other.
func resetCommandFlags(root *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	root.PersistentFlags().VisitAll(reset)
	walkCommands(root, func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
	})
}
