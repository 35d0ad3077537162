// Package txerror classifies failures from validation, the signer and the
// node into the closed set of domain error kinds, and renders them for people.
package txerror

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/etenda/etenda/internal/ledger"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

func build(sentinel *etendaerr.EtendaError, reason string, details map[string]string, cause error) *etendaerr.EtendaError {
	e := etendaerr.WithReason(sentinel, reason)
	if len(details) > 0 {
		if e.Details == nil {
			e.Details = make(map[string]string, len(details))
		}
		for k, v := range details {
			e.Details[k] = v
		}
	}
	e.Cause = cause
	return e
}

// Validation is a local rejection with a reason code.
func Validation(reason ledger.Reason) *etendaerr.EtendaError {
	e := build(etendaerr.ErrValidation, string(reason), nil, nil)
	e.Message = "validation failed: " + string(reason)
	return e
}

// Contract is a ledger rejection. reason may be empty when the revert
// carried only a free-form message.
func Contract(reason ledger.Reason, revertMsg string, cause error) *etendaerr.EtendaError {
	var details map[string]string
	if revertMsg != "" && revertMsg != string(reason) {
		details = map[string]string{"revert": revertMsg}
	}
	e := build(etendaerr.ErrContract, string(reason), details, cause)
	if reason != "" {
		e.Message = "ledger rejected the request: " + string(reason)
	}
	return e
}

// Precision reports an amount with more fractional digits than the ledger holds.
func Precision(amount string) *etendaerr.EtendaError {
	return build(etendaerr.ErrPrecision, "", map[string]string{"amount": amount}, nil)
}

// InvalidDeadlineInput reports a deadline that could not be parsed.
func InvalidDeadlineInput(input string) *etendaerr.EtendaError {
	return build(etendaerr.ErrInvalidDeadlineInput, "", map[string]string{"deadline": input}, nil)
}

// TenderNotFound reports a tender id the ledger does not know.
func TenderNotFound(id *big.Int) *etendaerr.EtendaError {
	s := "<nil>"
	if id != nil {
		s = id.String()
	}
	return build(etendaerr.ErrTenderNotFound, string(ledger.TenderNotExists), map[string]string{"tender_id": s}, nil)
}

// UserRejected reports a declined signature or an abandoned operation.
func UserRejected(cause error) *etendaerr.EtendaError {
	return build(etendaerr.ErrUserRejected, "", nil, cause)
}

// NoProvider reports a missing or unresponsive provider.
func NoProvider(cause error) *etendaerr.EtendaError {
	return build(etendaerr.ErrNoProvider, "", nil, cause)
}

// UnsupportedNetwork reports a chain id without a ledger deployment.
func UnsupportedNetwork(chainID uint64) *etendaerr.EtendaError {
	return build(etendaerr.ErrUnsupportedNetwork, "", map[string]string{
		"chain_id": new(big.Int).SetUint64(chainID).String(),
	}, nil)
}

// WalletChanged reports an operation whose pinned snapshot went stale.
func WalletChanged(pinned, current uint64) *etendaerr.EtendaError {
	return build(etendaerr.ErrWalletChanged, "", map[string]string{
		"pinned_generation":  new(big.Int).SetUint64(pinned).String(),
		"current_generation": new(big.Int).SetUint64(current).String(),
	}, nil)
}

// GasEstimationFailed reports a fee or gas failure before broadcast.
func GasEstimationFailed(cause error) *etendaerr.EtendaError {
	return build(etendaerr.ErrGasEstimationFailed, "", nil, cause)
}

// NonceConflict reports a nonce rejected by the node.
func NonceConflict(cause error) *etendaerr.EtendaError {
	return build(etendaerr.ErrNonceConflict, "", nil, cause)
}

// TimedOut reports a submitted transaction whose inclusion was not observed
// in time. hash is the zero hash when nothing was broadcast.
func TimedOut(hash common.Hash) *etendaerr.EtendaError {
	var details map[string]string
	if hash != (common.Hash{}) {
		details = map[string]string{"tx": hash.Hex()}
	}
	return build(etendaerr.ErrTimedOut, "", details, nil)
}

// Unknown wraps anything unclassified, keeping the original message.
func Unknown(cause error) *etendaerr.EtendaError {
	return build(etendaerr.ErrUnknownFailure, "", nil, cause)
}
