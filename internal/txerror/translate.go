package txerror

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/etenda/etenda/internal/chain/eth"
	"github.com/etenda/etenda/internal/gateway"
	"github.com/etenda/etenda/internal/ledger"
	etendaerr "github.com/etenda/etenda/pkg/errors"
)

// codeUserRejected is the EIP-1193 "user rejected request" code.
const codeUserRejected = 4001

//nolint:gochecknoglobals // static signal tables
var (
	rejectionSignals = []string{"user rejected", "user denied", "rejected by user", "request rejected"}

	gasSignals = []string{
		"gas required exceeds",
		"insufficient funds",
		"intrinsic gas too low",
		"out of gas",
		"max fee per gas less than block base fee",
		"fee cap less than block base fee",
		"exceeds block gas limit",
	}

	nonceSignals = []string{
		"nonce too low",
		"nonce too high",
		"invalid nonce",
		"already known",
		"replacement transaction underpriced",
	}
)

// Translate maps any failure to a domain error. It is total: nil in gives
// nil out, anything unrecognized becomes an unknown failure that keeps the
// raw message.
func Translate(err error) *etendaerr.EtendaError {
	if err == nil {
		return nil
	}

	var ee *etendaerr.EtendaError
	if errors.As(err, &ee) && ee.Kind.IsDomain() {
		return ee
	}

	msg := strings.ToLower(err.Error())

	if isRejection(err, msg) {
		return UserRejected(err)
	}
	reason, revertMsg := revertReason(err, msg)
	if ledger.IsLedgerReason(reason) {
		return Contract(reason, revertMsg, err)
	}

	var out *etendaerr.EtendaError
	switch {
	case errors.Is(err, eth.ErrGasEstimation) || containsAny(msg, gasSignals):
		out = GasEstimationFailed(err)
	case containsAny(msg, nonceSignals):
		out = NonceConflict(err)
	case errors.Is(err, context.DeadlineExceeded):
		out = TimedOut(common.Hash{})
	default:
		out = Unknown(err)
	}
	// a revert the ledger did not name is kept for the report
	if revertMsg != "" {
		if out.Details == nil {
			out.Details = make(map[string]string, 1)
		}
		out.Details["revert"] = revertMsg
	}
	return out
}

func isRejection(err error, msg string) bool {
	if errors.Is(err, gateway.ErrSignerRejected) || errors.Is(err, context.Canceled) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
		return true
	}
	return containsAny(msg, rejectionSignals)
}

// revertReason looks for revert data or text in err. reason is empty when
// the revert names no ledger error; msg is the revert text, if any.
func revertReason(err error, lower string) (reason ledger.Reason, msg string) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := ledger.RevertData(dataErr.ErrorData()); ok {
			if r, text, ok := ledger.DecodeRevert(data); ok {
				return r, text
			}
		}
	}

	if r, ok := ledger.FindReason(err.Error()); ok {
		return r, ""
	}

	const marker = "execution reverted"
	i := strings.Index(lower, marker)
	if i < 0 {
		return "", ""
	}
	orig := err.Error()
	rest := ""
	if end := i + len(marker); end <= len(orig) {
		rest = strings.TrimSpace(orig[end:])
	}
	return "", strings.TrimSpace(strings.TrimPrefix(rest, ":"))
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
