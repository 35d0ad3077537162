// Package eth wraps go-ethereum's client with the throttling, retry and
// transaction-building conventions the tender ledger needs.
package eth

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/etenda/etenda/internal/chain"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// ErrRPCURLRequired indicates the RPC URL was not provided.
var ErrRPCURLRequired = &etendaerr.EtendaError{
	Kind:     etendaerr.KindInput,
	Code:     "ETH_RPC_URL_REQUIRED",
	Message:  "RPC URL is required",
	ExitCode: etendaerr.ExitInput,
}

// Recorder receives timing for every node call. Implemented by the metrics package.
type Recorder interface {
	RecordRPCCall(method string, d time.Duration, err error)
}

// ClientOptions contains optional configuration for the client.
type ClientOptions struct {
	// ChainID skips the eth_chainId round trip when already known.
	ChainID *big.Int
	// Throttle spaces node calls. Nil disables throttling.
	Throttle *chain.Throttle
	// Backoff overrides the read retry policy.
	Backoff *chain.Backoff
	// HTTPClient overrides the transport used for the JSON-RPC connection.
	HTTPClient *http.Client
	Logger     *zerolog.Logger
	Recorder   Recorder
}

// Client is a lazily connected JSON-RPC client. Reads are throttled and
// retried; sends are throttled but never retried.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	ec         *ethclient.Client
	chainID    *big.Int
	throttle   *chain.Throttle
	backoff    chain.Backoff
	log        zerolog.Logger
	recorder   Recorder

	mu sync.Mutex
}

// NewClient creates a client for rpcURL. No connection is made until the first call.
func NewClient(rpcURL string, opts *ClientOptions) (*Client, error) {
	if rpcURL == "" {
		return nil, ErrRPCURLRequired
	}

	c := &Client{
		rpcURL:  rpcURL,
		backoff: chain.DefaultBackoff(),
		log:     zerolog.Nop(),
	}
	if opts != nil {
		if opts.ChainID != nil {
			c.chainID = new(big.Int).Set(opts.ChainID)
		}
		if opts.Backoff != nil {
			c.backoff = *opts.Backoff
		}
		if opts.Logger != nil {
			c.log = *opts.Logger
		}
		c.throttle = opts.Throttle
		c.httpClient = opts.HTTPClient
		c.recorder = opts.Recorder
	}
	return c, nil
}

// URL returns the endpoint the client talks to.
func (c *Client) URL() string {
	return c.rpcURL
}

func (c *Client) connect(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ec != nil {
		return c.ec, nil
	}
	var dialOpts []rpc.ClientOption
	if c.httpClient != nil {
		dialOpts = append(dialOpts, rpc.WithHTTPClient(c.httpClient))
	}
	rc, err := rpc.DialOptions(ctx, c.rpcURL, dialOpts...)
	if err != nil {
		// Transient dial failures are not cached so the next call can retry.
		return nil, etendaerr.WithDetails(etendaerr.WithCause(etendaerr.ErrNetworkError, err), map[string]string{
			"rpc": c.rpcURL,
		})
	}
	c.ec = ethclient.NewClient(rc)
	c.log.Debug().Str("rpc", c.rpcURL).Msg("connected to node")
	return c.ec, nil
}

// call throttles and times a single node call.
func (c *Client) call(ctx context.Context, method string, fn func(ec *ethclient.Client) error) error {
	ec, err := c.connect(ctx)
	if err != nil {
		return err
	}
	if err = c.throttle.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	err = fn(ec)
	if c.recorder != nil {
		c.recorder.RecordRPCCall(method, time.Since(start), err)
	}
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Msg("node call failed")
	}
	return err
}

func read[T any](ctx context.Context, c *Client, method string, fn func(ec *ethclient.Client) (T, error)) (T, error) {
	b := c.backoff
	b.OnRetry = func(attempt int, wait time.Duration, err error) {
		c.log.Debug().Err(err).Str("method", method).Int("attempt", attempt).Dur("wait", wait).Msg("retrying node call")
	}
	return chain.Retry(ctx, b, func(ctx context.Context) (T, error) {
		var out T
		err := c.call(ctx, method, func(ec *ethclient.Client) error {
			var err error
			out, err = fn(ec)
			return err
		})
		return out, err
	})
}

// ChainID returns the chain id of the connected node, cached after the first call.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	if c.chainID != nil {
		id := new(big.Int).Set(c.chainID)
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	id, err := read(ctx, c, "eth_chainId", func(ec *ethclient.Client) (*big.Int, error) {
		return ec.ChainID(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("getting chain ID: %w", err)
	}

	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return new(big.Int).Set(id), nil
}

// BlockNumber returns the latest block height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return read(ctx, c, "eth_blockNumber", func(ec *ethclient.Client) (uint64, error) {
		return ec.BlockNumber(ctx)
	})
}

// PendingNonceAt returns the account nonce including pending transactions.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return read(ctx, c, "eth_getTransactionCount", func(ec *ethclient.Client) (uint64, error) {
		return ec.PendingNonceAt(ctx, account)
	})
}

// SuggestGasPrice returns the node's gas price, base fee plus a typical tip.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return read(ctx, c, "eth_gasPrice", func(ec *ethclient.Client) (*big.Int, error) {
		return ec.SuggestGasPrice(ctx)
	})
}

// SuggestGasTipCap returns the node's priority fee suggestion.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return read(ctx, c, "eth_maxPriorityFeePerGas", func(ec *ethclient.Client) (*big.Int, error) {
		return ec.SuggestGasTipCap(ctx)
	})
}

// EstimateGas simulates msg and returns the gas it would use. Reverts
// surface here, so estimation is not retried.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas uint64
	err := c.call(ctx, "eth_estimateGas", func(ec *ethclient.Client) error {
		var err error
		gas, err = ec.EstimateGas(ctx, msg)
		return err
	})
	return gas, err
}

// CallContract executes a read-only call at block (nil for latest).
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return read(ctx, c, "eth_call", func(ec *ethclient.Client) ([]byte, error) {
		return ec.CallContract(ctx, msg, block)
	})
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.call(ctx, "eth_sendRawTransaction", func(ec *ethclient.Client) error {
		return ec.SendTransaction(ctx, tx)
	})
}

// TransactionReceipt returns the receipt for hash, or ethereum.NotFound while pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.call(ctx, "eth_getTransactionReceipt", func(ec *ethclient.Client) error {
		var err error
		receipt, err = ec.TransactionReceipt(ctx, hash)
		return err
	})
	return receipt, err
}

// FilterLogs returns logs matching q.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return read(ctx, c, "eth_getLogs", func(ec *ethclient.Client) ([]types.Log, error) {
		return ec.FilterLogs(ctx, q)
	})
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ec != nil {
		c.ec.Close()
		c.ec = nil
	}
}
