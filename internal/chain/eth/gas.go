package eth

import (
	"errors"
	"math/big"
	"strings"

	"github.com/etenda/etenda/internal/chain"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// GasSpeed selects how much priority fee a write offers.
type GasSpeed string

// Gas speeds accepted by transactions.gas_speed.
const (
	GasSpeedSlow   GasSpeed = "slow"
	GasSpeedMedium GasSpeed = "medium"
	GasSpeedFast   GasSpeed = "fast"
)

// DefaultGasLimit is used when estimation is disabled.
const DefaultGasLimit uint64 = 500_000

// gasHeadroomPercent pads an estimate.
const gasHeadroomPercent = 20

// tipPercent scales the node's suggested priority fee per speed.
//
//nolint:gochecknoglobals // fixed table
var tipPercent = map[GasSpeed]int64{
	GasSpeedSlow:   80,
	GasSpeedMedium: 100,
	GasSpeedFast:   150,
}

// ErrGasEstimation marks a failure of the node's gas estimation. The
// underlying error (often a revert) is wrapped alongside it.
var ErrGasEstimation = errors.New("gas estimation failed")

// ParseGasSpeed reads a configured speed. Empty means medium.
func ParseGasSpeed(s string) (GasSpeed, error) {
	speed := GasSpeed(strings.ToLower(strings.TrimSpace(s)))
	if speed == "" {
		return GasSpeedMedium, nil
	}
	if _, ok := tipPercent[speed]; !ok {
		return "", etendaerr.WithDetails(etendaerr.ErrInvalidGasSpeed, map[string]string{
			"speed":   s,
			"allowed": "slow, medium, or fast",
		})
	}
	return speed, nil
}

// Fees are the EIP-1559 per-gas caps of a transaction, in wei.
type Fees struct {
	Tip *big.Int // max priority fee
	Cap *big.Int // max total fee
}

// FeesFor prices a transaction from the node's suggested gas price and
// priority fee. The base fee is read as price minus tip, and the cap
// stays valid until the base fee doubles.
func FeesFor(price, tip *big.Int, speed GasSpeed) Fees {
	if tip == nil {
		tip = new(big.Int)
	}
	base := new(big.Int)
	if price != nil && price.Cmp(tip) > 0 {
		base.Sub(price, tip)
	}
	pct, ok := tipPercent[speed]
	if !ok {
		pct = tipPercent[GasSpeedMedium]
	}
	scaled := new(big.Int).Mul(tip, big.NewInt(pct))
	scaled.Quo(scaled, big.NewInt(100))

	feeCap := new(big.Int).Lsh(base, 1)
	return Fees{Tip: scaled, Cap: feeCap.Add(feeCap, scaled)}
}

// MaxCost is the most limit gas can cost under these caps.
func (f Fees) MaxCost(limit uint64) *big.Int {
	if f.Cap == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(f.Cap, new(big.Int).SetUint64(limit))
}

// PadLimit adds headroom to an estimate so small state changes between
// estimation and inclusion do not run the transaction out of gas.
func PadLimit(estimate uint64) uint64 {
	return estimate + estimate*gasHeadroomPercent/100
}

// FormatGwei renders a per-gas price such as "1.5 gwei".
func FormatGwei(wei *big.Int) string {
	return chain.FormatDecimalAmount(wei, 9) + " gwei"
}
