package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/etenda/etenda/internal/chain"
	"github.com/etenda/etenda/internal/chain/eth"
	"github.com/etenda/etenda/internal/config"
	"github.com/etenda/etenda/internal/contract"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/ledger"
	"github.com/etenda/etenda/internal/metrics"
	"github.com/etenda/etenda/internal/repository"
	tenderservice "github.com/etenda/etenda/internal/service/tender"
	"github.com/etenda/etenda/internal/txlifecycle"
	"github.com/etenda/etenda/internal/wallet"
)

// newBackendFn builds the node backend for c. Tests replace it.
//
//nolint:gochecknoglobals // replaced in tests
var newBackendFn = func(c *config.Config, log zerolog.Logger, rec eth.Recorder) (gateway.Backend, func(), error) {
	url, err := c.RPCURL()
	if err != nil {
		return nil, nil, err
	}
	client, err := eth.NewClient(url, &eth.ClientOptions{
		Throttle: chain.NewThrottle(c.Network.RateLimit, c.Network.Burst),
		Logger:   &log,
		Recorder: rec,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// CommandContext holds the wired stack for commands that talk to the ledger.
type CommandContext struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Network   chain.Network
	Metrics   *metrics.Metrics
	Backend   gateway.Backend
	Gateway   *gateway.Gateway
	Lifecycle *txlifecycle.Lifecycle
	Tender    *tenderservice.Service

	closers []func()
}

// NewCommandContext connects to the configured network and wires the
// gateway, lifecycle, repository and tender service. The signing key, when
// configured, is only decrypted for the first signature.
func NewCommandContext(ctx context.Context, c *config.Config, log zerolog.Logger) (*CommandContext, error) {
	network, err := c.SelectedNetwork()
	if err != nil {
		return nil, err
	}
	cc := &CommandContext{
		Config:  c,
		Logger:  log,
		Network: network,
		Metrics: metrics.New(),
	}

	backend, closeBackend, err := newBackendFn(c, log, cc.Metrics)
	if err != nil {
		return nil, err
	}
	cc.Backend = backend
	cc.closers = append(cc.closers, closeBackend)

	signer, err := cc.signer()
	if err != nil {
		cc.Close()
		return nil, err
	}

	speed, err := eth.ParseGasSpeed(c.Transactions.GasSpeed)
	if err != nil {
		cc.Close()
		return nil, err
	}
	cc.Gateway = gateway.New(
		gateway.WithGasSpeed(speed),
		gateway.WithGasLimit(c.Transactions.GasLimit),
		gateway.WithLogger(log),
	)
	if err = cc.Gateway.Replace(ctx, &gateway.Provider{Backend: backend, Signer: signer}); err != nil {
		cc.Close()
		return nil, err
	}
	if got := cc.Gateway.NetworkID(); got != network.ChainID {
		log.Warn().Uint64("configured", network.ChainID).Uint64("node", got).Msg("node is on a different network than configured")
	}

	cc.Lifecycle = txlifecycle.New(cc.Gateway, txlifecycle.Config{
		Timeout:       c.Transactions.Timeout,
		PollInterval:  c.Transactions.PollInterval,
		Confirmations: c.Transactions.Confirmations,
	}, txlifecycle.WithLogger(log), txlifecycle.WithRecorder(cc.Metrics))

	repo, err := cc.repository()
	if err != nil {
		cc.Close()
		return nil, err
	}

	book, err := c.AddressBook()
	if err != nil {
		cc.Close()
		return nil, err
	}
	loc, err := c.Location()
	if err != nil {
		cc.Close()
		return nil, err
	}
	cc.Tender = tenderservice.NewService(&tenderservice.Config{
		Wallet:     cc.Gateway,
		Book:       book,
		Executor:   cc.Lifecycle,
		Repository: repo,
		Contract:   []contract.Option{contract.WithLocation(loc)},
		Logger:     log,
	})
	// service first: it flushes the repository before the store goes away
	cc.closers = append([]func(){cc.Tender.Close}, cc.closers...)
	return cc, nil
}

// signer returns the configured key as a signer, or nil for read-only use.
func (cc *CommandContext) signer() (gateway.Signer, error) {
	name := cc.Config.Signer.Key
	if name == "" {
		return nil, nil
	}
	var opts []wallet.StoredOption
	if cc.Config.Signer.Keychain {
		opts = append(opts, wallet.RememberIn(wallet.NewVault()))
	}
	stored, err := wallet.NewStoredSigner(wallet.NewKeyStore(cc.Config.KeysDir()), name, keyPassword(name), opts...)
	if err != nil {
		return nil, err
	}
	if !cc.Config.Signer.Confirm || assumeYes {
		return stored, nil
	}
	return &wallet.PromptSigner{
		Inner:    stored,
		In:       os.Stdin,
		Out:      os.Stderr,
		Describe: describeTx,
	}, nil
}

// repository builds the view cache with the configured shared store.
func (cc *CommandContext) repository() (*repository.Repository, error) {
	c := cc.Config
	opts := []repository.Option{
		repository.WithTTL(c.Cache.TTL),
		repository.WithLogger(cc.Logger),
		repository.WithRecorder(cc.Metrics),
	}

	switch c.Cache.Backend {
	case config.CacheRedis:
		rs, err := repository.NewRedisStore(repository.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		cc.closers = append(cc.closers, func() { _ = rs.Close() })
		opts = append(opts, repository.WithStore(rs))
	case config.CacheFile:
		opts = append(opts, repository.WithStore(repository.NewFileStore(c.CacheFile())))
	case config.CacheNone:
	}
	return repository.New(nil, 0, opts...), nil
}

// Close releases the stack in dependency order.
func (cc *CommandContext) Close() {
	for _, fn := range cc.closers {
		if fn != nil {
			fn()
		}
	}
	cc.closers = nil

	s := cc.Metrics.Snapshot()
	cc.Logger.Debug().
		Int64("rpc_calls", s.RPCCallsTotal).
		Int64("rpc_errors", s.RPCErrorsTotal).
		Float64("rpc_latency_avg_ms", s.RPCLatencyAvgMs).
		Float64("cache_hit_rate", s.CacheHitRate).
		Msg("session totals")
}

// describeTx names the ledger call a transaction makes.
func describeTx(tx *types.Transaction) string {
	data := tx.Data()
	if len(data) < 4 {
		return fmt.Sprintf("call to %s", tx.To().Hex())
	}
	a := ledger.ABI()
	m, err := a.MethodById(data[:4])
	if err != nil {
		return fmt.Sprintf("call to %s", tx.To().Hex())
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil || len(args) == 0 {
		return m.Name
	}
	switch m.Name {
	case ledger.MethodPostTender:
		return fmt.Sprintf("%s %q", m.Name, args[0])
	default:
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = fmt.Sprint(a)
		}
		return fmt.Sprintf("%s(%s)", m.Name, strings.Join(parts, ", "))
	}
}

// commandContext builds the stack from the global configuration.
func commandContext(ctx context.Context) (*CommandContext, error) {
	return NewCommandContext(ctx, cfg, logger)
}
