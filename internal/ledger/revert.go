package ledger

import (
	"bytes"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

//nolint:gochecknoglobals // well-known selectors
var (
	errorStringSelector = Selector("Error(string)")
	panicSelector       = Selector("Panic(uint256)")
)

// DecodeRevert interprets revert data returned by a node. A matching ledger
// custom error yields its reason; Error(string) and Panic(uint256) yield
// their message and, when the message names a ledger reason, that reason.
// ok is false when data is not recognizable revert data.
func DecodeRevert(data []byte) (reason Reason, msg string, ok bool) {
	if len(data) < 4 {
		return "", "", false
	}

	for name, e := range ABI().Errors {
		if bytes.Equal(e.ID[:4], data[:4]) {
			return Reason(name), name, true
		}
	}

	if bytes.Equal(data[:4], errorStringSelector[:]) || bytes.Equal(data[:4], panicSelector[:]) {
		msg, err := abi.UnpackRevert(data)
		if err != nil {
			return "", "", false
		}
		r, _ := FindReason(msg)
		return r, msg, true
	}
	return "", "", false
}

// RevertData normalizes the payload of an rpc.DataError into bytes.
// Nodes return it as a 0x-prefixed hex string.
func RevertData(v any) ([]byte, bool) {
	switch d := v.(type) {
	case []byte:
		return d, len(d) > 0
	case string:
		if !strings.HasPrefix(d, "0x") {
			return nil, false
		}
		b, err := hexutil.Decode(d)
		if err != nil || len(b) == 0 {
			return nil, false
		}
		return b, true
	default:
		return nil, false
	}
}
