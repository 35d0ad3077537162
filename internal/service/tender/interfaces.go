package tender

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etenda/etenda/internal/contract"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/txlifecycle"
)

// Executor runs prepared writes to a terminal outcome.
type Executor interface {
	Execute(ctx context.Context, p *contract.Prepared) (*txlifecycle.Outcome, error)
	Status(ctx context.Context, hash common.Hash) (*txlifecycle.Receipt, error)
	SetOnConfirmed(fn func(ctx context.Context, o *txlifecycle.Outcome))
}

// Wallet is the gateway surface the service needs.
type Wallet interface {
	Snapshot() *gateway.Snapshot
	Subscribe(kind gateway.EventKind, fn func(gateway.Event)) func()
}
